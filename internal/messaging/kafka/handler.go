package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/service/render"
)

// NewRenderJobHandler превращает render.Worker в MessageHandler.
// Весь бюджет попыток и backoff живут здесь: worker решает, когда
// повторять, а исчерпание бюджета и не-ретраибельные отказы возвращаются
// как PermanentError, чтобы consumer отправил сообщение в DLQ без
// дополнительных прогонов.
func NewRenderJobHandler(worker *render.Worker, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "render-job-handler")
	}

	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParseRenderJobEvent(message)
		if err != nil {
			// Битое сообщение не лечится повтором, пусть уходит в DLQ.
			logger.WithError(err).WithFields(log.Fields{
				"topic":  message.Topic,
				"offset": message.Offset,
			}).Error("malformed render job message")
			return &PermanentError{Err: err}
		}

		for attempt := 1; ; attempt++ {
			result := worker.Process(ctx, event.OrderUUID, attempt)
			switch result.Kind {
			case render.ResultCompleted:
				return nil
			case render.ResultPermanentFailure:
				return &PermanentError{Err: fmt.Errorf("render order %s: %s", event.OrderUUID, result.Reason)}
			case render.ResultRetryAfter:
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(result.Delay):
				}
			}
		}
	}
}
