package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/messaging/kafka"
)

// initKafkaProducer инициализирует Kafka producer по списку брокеров
// через запятую.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, []string, error) {
	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		return nil, nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, brokerList, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
