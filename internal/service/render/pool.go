package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/metrics"
)

const (
	defaultPoolWorkers = 4
	defaultQueueSize   = 256
)

// Pool — in-process очередь render-заданий с пулом воркеров.
// Используется, когда Kafka не сконфигурирован: постановка задания не
// блокирует запрос, доставка at-least-once в пределах процесса.
type Pool struct {
	worker  *Worker
	jobs    chan string
	workers int
	metrics *metrics.RenderMetrics
	logger  *log.Entry
	wg      sync.WaitGroup
}

// PoolOptions задаёт параметры пула.
type PoolOptions struct {
	Workers   int
	QueueSize int
	Metrics   *metrics.RenderMetrics
	Logger    *log.Entry
}

// NewPool создаёт пул воркеров поверх Worker.
func NewPool(worker *Worker, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultPoolWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "render-pool")
	}

	return &Pool{
		worker:  worker,
		jobs:    make(chan string, opts.QueueSize),
		workers: opts.Workers,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Enqueue ставит задание на рендеринг заказа, не дожидаясь обработки.
func (p *Pool) Enqueue(ctx context.Context, orderUUID string) error {
	select {
	case p.jobs <- orderUUID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("render queue is full")
	}
}

// Start запускает воркеры; они работают до отмены ctx.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case orderUUID := <-p.jobs:
					p.runJob(ctx, orderUUID)
				}
			}
		}()
	}
	p.logger.WithField("workers", p.workers).Info("render pool started")
}

// Wait блокируется до завершения всех воркеров.
func (p *Pool) Wait() {
	p.wg.Wait()
	p.logger.Info("render pool stopped")
}

// runJob крутит одно задание до Completed или PermanentFailure,
// интерпретируя RetryAfter как паузу с повтором того же тела.
func (p *Pool) runJob(ctx context.Context, orderUUID string) {
	if p.metrics != nil {
		p.metrics.RecordJobStarted()
		defer p.metrics.RecordJobFinished()
	}
	started := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordJobDuration(time.Since(started))
		}
	}()

	for attempt := 1; ; attempt++ {
		result := p.worker.Process(ctx, orderUUID, attempt)
		switch result.Kind {
		case ResultCompleted:
			return
		case ResultPermanentFailure:
			// Задание не перезапускается автоматически: решение о повторной
			// постановке принимает оператор.
			p.logger.WithFields(log.Fields{
				"order_uuid": orderUUID,
				"reason":     result.Reason,
			}).Error("render job escalated to operator")
			return
		case ResultRetryAfter:
			select {
			case <-ctx.Done():
				return
			case <-time.After(result.Delay):
			}
		}
	}
}

var _ domain.RenderQueue = (*Pool)(nil)
