package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checks/internal/metrics"
	"github.com/vladislavdragonenkov/checks/internal/pdf"
	"github.com/vladislavdragonenkov/checks/internal/service/order"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
	"github.com/vladislavdragonenkov/checks/internal/service/render"
	"github.com/vladislavdragonenkov/checks/internal/storage/media"
	"github.com/vladislavdragonenkov/checks/internal/storage/memory"
	"github.com/vladislavdragonenkov/checks/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Points   domain.MerchantPointRepository
	Printers domain.PrinterRepository
	Checks   domain.CheckRepository
	Media    domain.ArtifactStore

	Orders   *order.Service
	Registry *registry.Service
	Worker   *render.Worker
	Metrics  *metrics.RenderMetrics

	// Ровно один из pool/consumer активен: Kafka при заданных брокерах,
	// иначе in-process пул.
	pool     *render.Pool
	consumer *kafka.Consumer
	producer *kafka.Producer
	store    *postgres.Store
}

// NewDependencies создаёт и связывает зависимости приложения по конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Metrics: metrics.NewRenderMetrics(),
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.store = store
		deps.Points = postgres.NewMerchantPointRepository(store)
		deps.Printers = postgres.NewPrinterRepository(store)
		deps.Checks = postgres.NewCheckRepository(store)
		logger.Info("postgres storage initialized")
	} else {
		deps.Points = memory.NewMerchantPointRepository()
		deps.Printers = memory.NewPrinterRepository()
		deps.Checks = memory.NewCheckRepository()
		logger.Warn("postgres dsn is empty, using in-memory storage")
	}

	mediaStore, err := media.New(cfg.MediaDir)
	if err != nil {
		deps.Close(logger)
		return nil, fmt.Errorf("init media store: %w", err)
	}
	deps.Media = mediaStore

	converter := pdf.NewClient(cfg.ConverterURL, pdf.WithLogger(logger.WithField("component", "pdf-client")))
	retry := render.RetryConfig{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: 2.0,
	}
	deps.Worker = render.NewWorker(deps.Checks, deps.Media, converter, retry, deps.Metrics, logger.WithField("component", "render-worker"))

	queue, err := deps.initRenderQueue(cfg, logger)
	if err != nil {
		deps.Close(logger)
		return nil, err
	}

	deps.Orders = order.NewService(deps.Checks, queue, deps.Metrics, logger.WithField("component", "fanout"))
	deps.Registry = registry.NewService(deps.Points, deps.Printers, deps.Checks, logger.WithField("component", "registry"))

	return deps, nil
}

// initRenderQueue выбирает транспорт render-заданий: Kafka или in-process пул.
func (d *Dependencies) initRenderQueue(cfg Config, logger *log.Entry) (domain.RenderQueue, error) {
	if cfg.KafkaBrokers == "" {
		d.pool = render.NewPool(d.Worker, render.PoolOptions{
			Workers:   cfg.RenderWorkers,
			QueueSize: cfg.RenderQueueSize,
			Metrics:   d.Metrics,
			Logger:    logger.WithField("component", "render-pool"),
		})
		logger.Info("kafka brokers are empty, using in-process render pool")
		return d.pool, nil
	}

	producer, brokers, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, fmt.Errorf("init kafka producer: %w", err)
	}
	d.producer = producer

	handler := kafka.NewRenderJobHandler(d.Worker, logger.WithField("component", "render-job-handler"))
	consumer, err := kafka.NewConsumerWithDLQ(brokers, "checks-render", []string{kafka.TopicRenderJobs}, handler, producer, cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("init kafka consumer: %w", err)
	}
	d.consumer = consumer

	return kafka.NewRenderQueue(producer, kafka.TopicRenderJobs), nil
}

// StartRenderers запускает фоновую обработку render-заданий.
func (d *Dependencies) StartRenderers(ctx context.Context) {
	if d.pool != nil {
		d.pool.Start(ctx)
	}
	if d.consumer != nil {
		_ = d.consumer.Start(ctx)
	}
}

// StopRenderers дожидается остановки фоновой обработки.
func (d *Dependencies) StopRenderers(logger *log.Entry) {
	if d.pool != nil {
		d.pool.Wait()
	}
	if d.consumer != nil {
		if err := d.consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop kafka consumer")
		}
	}
}

// StorageCheck возвращает health-проверку хранилища.
func (d *Dependencies) StorageCheck(ctx context.Context) func() error {
	return func() error {
		if d.store == nil {
			return nil // in-memory хранилище всегда доступно
		}
		return d.store.Ping(ctx)
	}
}

// Close освобождает внешние ресурсы.
func (d *Dependencies) Close(logger *log.Entry) {
	closeKafka(d.producer, logger)
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
