package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/metrics"
	"github.com/vladislavdragonenkov/checks/internal/pdf"
)

// RetryConfig конфигурация для retry логики render-заданий.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// backoff считает паузу перед попыткой attempt+1.
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.BackoffFactor)
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Worker обрабатывает render-задания: загружает new-чеки заказа,
// рендерит HTML, конвертирует в PDF и публикует артефакты.
type Worker struct {
	checks    domain.CheckRepository
	store     domain.ArtifactStore
	converter domain.Converter
	retry     RetryConfig
	metrics   *metrics.RenderMetrics
	logger    *log.Entry
}

// NewWorker создаёт render worker. renderMetrics может быть nil.
func NewWorker(checks domain.CheckRepository, store domain.ArtifactStore, converter domain.Converter, retry RetryConfig, renderMetrics *metrics.RenderMetrics, logger *log.Entry) *Worker {
	if logger == nil {
		logger = log.WithField("component", "render-worker")
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}

	return &Worker{
		checks:    checks,
		store:     store,
		converter: converter,
		retry:     retry,
		metrics:   renderMetrics,
		logger:    logger,
	}
}

// Process выполняет тело задания для заказа orderUUID; attempt начинается с 1.
// Тело идемпотентно: чеки, уже ушедшие из new, пропускаются, поэтому повтор
// после частичного успеха не рендерит соседей заново.
func (w *Worker) Process(ctx context.Context, orderUUID string, attempt int) JobResult {
	logger := w.logger.WithFields(log.Fields{
		"order_uuid": orderUUID,
		"attempt":    attempt,
	})

	checks, err := w.checks.ListByOrder(orderUUID, domain.CheckStatusNew)
	if err != nil {
		logger.WithError(err).Error("failed to load checks for order")
		return w.retryOrFail(logger, attempt, fmt.Sprintf("load checks: %v", err))
	}
	if len(checks) == 0 {
		// Все чеки уже отрисованы (или заказ неизвестен) — no-op.
		logger.Debug("no pending checks for order")
		return Completed()
	}

	for i := range checks {
		if result, ok := w.renderCheck(ctx, logger, checks[i], attempt); !ok {
			return result
		}
	}

	logger.WithField("checks", len(checks)).Info("order rendered")
	return Completed()
}

// renderCheck обрабатывает один чек; ok=false означает, что задание нужно
// завершить с возвращённым результатом.
func (w *Worker) renderCheck(ctx context.Context, logger *log.Entry, check domain.Check, attempt int) (JobResult, bool) {
	html, err := renderHTML(check)
	if err != nil {
		// Кривой шаблонный контекст не лечится повтором.
		logger.WithError(err).WithField("check_id", check.ID).Error("check html rendering failed")
		w.recordResult("permanent_failure")
		return PermanentFailure(fmt.Sprintf("check %s: %v", check.ID, err)), false
	}

	started := time.Now()
	data, err := w.converter.Convert(ctx, html)
	if w.metrics != nil {
		w.metrics.RecordConvertDuration(time.Since(started))
	}
	if err != nil {
		if pdf.IsTransient(err) {
			logger.WithError(err).WithField("check_id", check.ID).Warn("transient conversion failure")
			result := w.retryOrFail(logger, attempt, fmt.Sprintf("check %s: conversion failed after %d attempts: %v", check.ID, attempt, err))
			return result, false
		}
		logger.WithError(err).WithField("check_id", check.ID).Error("conversion rejected check")
		w.recordResult("permanent_failure")
		return PermanentFailure(fmt.Sprintf("check %s: %v", check.ID, err)), false
	}

	// Артефакт пишется до смены статуса: конкурентный опрос не должен
	// увидеть rendered без файла.
	name := artifactName(check)
	if err := w.store.Put(name, data); err != nil {
		logger.WithError(err).WithField("check_id", check.ID).Warn("artifact write failed")
		result := w.retryOrFail(logger, attempt, fmt.Sprintf("check %s: artifact write failed: %v", check.ID, err))
		return result, false
	}

	if err := w.checks.MarkRendered(check.ID, name); err != nil {
		if errors.Is(err, domain.ErrCheckStateChanged) || errors.Is(err, domain.ErrCheckNotFound) {
			// Конкурентный воркер успел первым; его запись идентична нашей.
			logger.WithField("check_id", check.ID).Debug("check already advanced, skipping")
			w.recordResult("skipped")
			return JobResult{}, true
		}
		logger.WithError(err).WithField("check_id", check.ID).Warn("status update failed")
		result := w.retryOrFail(logger, attempt, fmt.Sprintf("check %s: status update failed: %v", check.ID, err))
		return result, false
	}

	w.recordResult("rendered")
	return JobResult{}, true
}

// retryOrFail просит повтор с backoff либо, если бюджет попыток исчерпан,
// завершает задание насовсем. Чеки при этом остаются в new.
func (w *Worker) retryOrFail(logger *log.Entry, attempt int, reason string) JobResult {
	if attempt >= w.retry.MaxAttempts {
		logger.WithFields(log.Fields{
			"max_attempts": w.retry.MaxAttempts,
			"reason":       reason,
		}).Error("render job failed permanently, checks remain in status new")
		w.recordResult("permanent_failure")
		return PermanentFailure(reason)
	}

	delay := w.retry.backoff(attempt)
	logger.WithField("delay", delay).Warn("render job will be retried")
	w.recordResult("retried")
	return RetryAfter(delay)
}

func (w *Worker) recordResult(result string) {
	if w.metrics != nil {
		w.metrics.RecordRenderResult(result)
	}
}
