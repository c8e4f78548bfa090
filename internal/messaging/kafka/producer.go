package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// Producer публикует события сервиса чеков в Kafka через sync producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// newSyncProducerConfig — общая конфигурация всех sync-продюсеров сервиса:
// идемпотентная публикация с подтверждением от всех ISR.
func newSyncProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	// Идемпотентность требует не более одного запроса в полёте.
	config.Net.MaxOpenRequests = 1
	return config
}

// NewProducer создаёт producer, подключённый к брокерам brokers.
func NewProducer(brokers []string) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, newSyncProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}, nil
}

// PublishEvent сериализует event в JSON и публикует его в topic под ключом key.
// Ключ определяет партицию: события одного заказа попадают в одну партицию.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
	})
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// RenderQueue публикует render-задания в TopicRenderJobs.
type RenderQueue struct {
	producer *Producer
	topic    string
}

// NewRenderQueue создаёт Kafka-очередь render-заданий поверх producer.
func NewRenderQueue(producer *Producer, topic string) *RenderQueue {
	if topic == "" {
		topic = TopicRenderJobs
	}
	return &RenderQueue{
		producer: producer,
		topic:    topic,
	}
}

// Enqueue ставит задание на отрисовку заказа. Ошибка публикации не
// откатывает заказ: чеки уже созданы, решение принимает вызывающий.
func (q *RenderQueue) Enqueue(_ context.Context, orderUUID string) error {
	if q == nil || q.producer == nil {
		return fmt.Errorf("kafka render queue is not initialized")
	}
	return q.producer.PublishEvent(q.topic, orderUUID, NewRenderJobEvent(orderUUID))
}

var _ domain.RenderQueue = (*RenderQueue)(nil)
