package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/metrics"
)

// Service разворачивает провалидированный заказ в чеки: по одному на принтер.
type Service struct {
	checks  domain.CheckRepository
	queue   domain.RenderQueue
	metrics *metrics.RenderMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService создаёт fan-out сервис.
func NewService(checks domain.CheckRepository, queue domain.RenderQueue, renderMetrics *metrics.RenderMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "fanout")
	}

	return &Service{
		checks:  checks,
		queue:   queue,
		metrics: renderMetrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create генерирует UUID заказа, атомарно создаёт по чеку на каждый принтер
// и ставит одно render-задание — строго после коммита батча.
func (s *Service) Create(ctx context.Context, validated ValidatedOrder) (string, []domain.Check, error) {
	orderUUID := uuid.NewString()

	payload := validated.Order
	payload.UUID = orderUUID

	now := s.now()
	checks := make([]domain.Check, 0, len(validated.Printers))
	for _, printer := range validated.Printers {
		checks = append(checks, domain.Check{
			ID:        uuid.NewString(),
			PrinterID: printer.ID,
			Kind:      printer.Kind,
			Order:     payload,
			Status:    domain.CheckStatusNew,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.checks.CreateBatch(checks); err != nil {
		return "", nil, fmt.Errorf("create checks: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFanout(len(checks))
	}

	s.logger.WithFields(log.Fields{
		"order_uuid": orderUUID,
		"checks":     len(checks),
	}).Info("order fanned out")

	// Чеки уже закоммичены: ошибка постановки задания не откатывает заказ,
	// повторная постановка — ручное действие оператора.
	if err := s.queue.Enqueue(ctx, orderUUID); err != nil {
		s.logger.WithError(err).WithField("order_uuid", orderUUID).Error("failed to enqueue render job")
	}

	return orderUUID, checks, nil
}
