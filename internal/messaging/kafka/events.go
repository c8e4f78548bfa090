package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Топики сервиса чеков.
const (
	TopicRenderJobs      = "checks.render.jobs"
	TopicDeadLetterQueue = "checks.render.dlq"
)

// HeaderRetryCount — число уже потраченных попыток обработки; вместе с
// maxRetries consumer'а образует общий бюджет между доставками.
const HeaderRetryCount = "x-retry-count"

// RenderJobEvent — задание на отрисовку всех чеков одного заказа.
// Ключ сообщения — UUID заказа: задания одного заказа попадают в одну
// партицию и не гонятся между воркерами.
type RenderJobEvent struct {
	OrderUUID  string    `json:"order_uuid"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRenderJobEvent создаёт задание на отрисовку заказа.
func NewRenderJobEvent(orderUUID string) *RenderJobEvent {
	return &RenderJobEvent{
		OrderUUID:  orderUUID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ParseRenderJobEvent парсит RenderJobEvent из сообщения.
func ParseRenderJobEvent(message *sarama.ConsumerMessage) (*RenderJobEvent, error) {
	var event RenderJobEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal render job event: %w", err)
	}
	if event.OrderUUID == "" {
		return nil, fmt.Errorf("render job event without order_uuid")
	}
	return &event, nil
}
