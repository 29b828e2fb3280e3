// Package kafka wires the event bus to Kafka for multi-process deployments.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

const brokersEnv = "ROUTINELY_KAFKA_BROKERS"

func brokerList() ([]string, error) {
	raw := os.Getenv(brokersEnv)
	if raw == "" {
		// Fall back to the conventional variable so shared compose files work.
		raw = os.Getenv("KAFKA_BROKERS")
	}

	brokers := strings.Split(raw, ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, errors.New(brokersEnv + " environment variable is not set or empty")
	}

	return brokers, nil
}

// CreateChannel builds the publisher and subscriber pair for one service.
// Each service gets its own consumer group so the api and engine processes
// see every lifecycle event independently.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers, err := brokerList()
	if err != nil {
		return nil, nil, err
	}

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subscriberConfig,
			ConsumerGroup:         "routinely-" + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	publisherConfig := sarama.NewConfig()
	publisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}
