package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/routinely/routinely/pkg/channels/gochannel"
	"github.com/routinely/routinely/pkg/channels/kafka"
	"github.com/routinely/routinely/pkg/eventbus"
)

// NewEventBus creates the execution event bus. "memory" is the in-process
// channel for single-binary deployments; "kafka" reads its brokers from the
// environment.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "memory", "":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
