package render_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/pdf"
	"github.com/vladislavdragonenkov/checks/internal/service/render"
	"github.com/vladislavdragonenkov/checks/internal/storage/memory"
)

// fakeConverter отдаёт заранее запрограммированную последовательность ответов.
type fakeConverter struct {
	mu    sync.Mutex
	calls int
	// fail задаёт количество первых вызовов, завершающихся временной ошибкой.
	fail int
	// permanent заставляет каждый вызов падать необратимо.
	permanent bool
}

func (c *fakeConverter) Convert(_ context.Context, _ string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.permanent {
		return nil, fmt.Errorf("%w: status 400", pdf.ErrRejected)
	}
	if c.calls <= c.fail {
		return nil, fmt.Errorf("%w: connection refused", pdf.ErrUnavailable)
	}
	return []byte("%PDF-1.4 " + fmt.Sprint(c.calls)), nil
}

func (c *fakeConverter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func fastRetry() render.RetryConfig {
	return render.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func seedChecks(t *testing.T, repo domain.CheckRepository, orderUUID string, printers ...string) []domain.Check {
	t.Helper()
	now := time.Now().UTC()
	checks := make([]domain.Check, 0, len(printers))
	for _, printerID := range printers {
		checks = append(checks, domain.Check{
			ID:        orderUUID + "-" + printerID,
			PrinterID: printerID,
			Kind:      domain.CheckKindKitchen,
			Order: domain.OrderPayload{
				UUID:            orderUUID,
				MerchantPointID: "point-1",
				TotalPrice:      20,
				Items:           []domain.OrderItem{{Name: "Tea", Price: 10, Count: 2}},
			},
			Status:    domain.CheckStatusNew,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	require.NoError(t, repo.CreateBatch(checks))
	return checks
}

func TestWorker_ProcessRendersAllChecks(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{}
	seedChecks(t, checks, "order-1", "printer-1", "printer-2", "printer-3")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())
	result := worker.Process(context.Background(), "order-1", 1)
	require.Equal(t, render.ResultCompleted, result.Kind)

	rendered, err := checks.ListByOrder("order-1", domain.CheckStatusRendered)
	require.NoError(t, err)
	require.Len(t, rendered, 3)
	for _, check := range rendered {
		require.Contains(t, check.ArtifactName, "order-1")
		require.Contains(t, check.ArtifactName, check.PrinterID)
		require.True(t, store.Exists(check.ArtifactName))
		require.Empty(t, check.ValidateInvariants())
	}
	require.Equal(t, 3, converter.callCount())
}

func TestWorker_ProcessIsIdempotent(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{}
	seedChecks(t, checks, "order-1", "printer-1")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())
	require.Equal(t, render.ResultCompleted, worker.Process(context.Background(), "order-1", 1).Kind)
	require.Equal(t, 1, converter.callCount())

	// Повторное задание для уже отрисованного заказа — no-op без конвертаций.
	require.Equal(t, render.ResultCompleted, worker.Process(context.Background(), "order-1", 1).Kind)
	require.Equal(t, 1, converter.callCount())
}

func TestWorker_TransientFailureRequestsRetry(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{fail: 2}
	seedChecks(t, checks, "order-1", "printer-1")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())

	result := worker.Process(context.Background(), "order-1", 1)
	require.Equal(t, render.ResultRetryAfter, result.Kind)
	require.Greater(t, result.Delay, time.Duration(0))

	result = worker.Process(context.Background(), "order-1", 2)
	require.Equal(t, render.ResultRetryAfter, result.Kind)

	// Третья попытка успешна: чек отрисован, байты сохранены один раз.
	result = worker.Process(context.Background(), "order-1", 3)
	require.Equal(t, render.ResultCompleted, result.Kind)

	rendered, err := checks.ListByOrder("order-1", domain.CheckStatusRendered)
	require.NoError(t, err)
	require.Len(t, rendered, 1)
	require.True(t, store.Exists(rendered[0].ArtifactName))
}

func TestWorker_RetryExhaustionLeavesChecksNew(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{fail: 100}
	seedChecks(t, checks, "order-1", "printer-1")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())

	require.Equal(t, render.ResultRetryAfter, worker.Process(context.Background(), "order-1", 1).Kind)
	require.Equal(t, render.ResultRetryAfter, worker.Process(context.Background(), "order-1", 2).Kind)

	// Бюджет попыток исчерпан: явный permanent failure с причиной.
	result := worker.Process(context.Background(), "order-1", 3)
	require.Equal(t, render.ResultPermanentFailure, result.Kind)
	require.NotEmpty(t, result.Reason)

	// Чек остаётся в new и может быть дорендерен повторной постановкой.
	pending, err := checks.ListByOrder("order-1", domain.CheckStatusNew)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Empty(t, pending[0].ArtifactName)
}

func TestWorker_PermanentConverterFailure(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{permanent: true}
	seedChecks(t, checks, "order-1", "printer-1")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())

	// 4xx от конвертера не ретраится даже на первой попытке.
	result := worker.Process(context.Background(), "order-1", 1)
	require.Equal(t, render.ResultPermanentFailure, result.Kind)
	require.Equal(t, 1, converter.callCount())

	pending, err := checks.ListByOrder("order-1", domain.CheckStatusNew)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestWorker_PartialRetryDoesNotRerenderSiblings(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{}
	created := seedChecks(t, checks, "order-1", "printer-1", "printer-2")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())
	require.Equal(t, render.ResultCompleted, worker.Process(context.Background(), "order-1", 1).Kind)
	require.Equal(t, 2, converter.callCount())

	// Симулируем at-least-once доставку: то же задание приходит ещё раз.
	require.Equal(t, render.ResultCompleted, worker.Process(context.Background(), "order-1", 1).Kind)
	require.Equal(t, 2, converter.callCount(), "siblings must not be re-rendered")

	for _, check := range created {
		stored, err := checks.Get(check.ID)
		require.NoError(t, err)
		require.Equal(t, domain.CheckStatusRendered, stored.Status)
	}
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	checks := memory.NewCheckRepository()
	store := memory.NewArtifactStore()
	converter := &fakeConverter{fail: 1}
	seedChecks(t, checks, "order-1", "printer-1")

	worker := render.NewWorker(checks, store, converter, fastRetry(), nil, loggerForTests())
	pool := render.NewPool(worker, render.PoolOptions{Workers: 2, QueueSize: 8, Logger: loggerForTests()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	require.NoError(t, pool.Enqueue(ctx, "order-1"))

	// Пул ретраит временную ошибку сам и доводит заказ до rendered.
	require.Eventually(t, func() bool {
		rendered, err := checks.ListByOrder("order-1", domain.CheckStatusRendered)
		return err == nil && len(rendered) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	pool.Wait()
}
