// Package main runs the routinely execution engine: source pollers, the
// schedule poller and the workflow executor.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/routinely/routinely/pkg/cmd"
	"github.com/routinely/routinely/pkg/integration/console"
	"github.com/routinely/routinely/pkg/log"
	"github.com/routinely/routinely/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "routinely-engine",
		Usage:                 "Start the routinely workflow engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres:// or a file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Optional Redis URL for a shared dedup ledger",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "claim-ttl",
				Usage:   "Retention of dedup claims before eviction",
				Value:   7 * 24 * time.Hour,
				Sources: cli.EnvVars("CLAIM_TTL"),
			},
			&cli.StringFlag{
				Name:    "event-dir",
				Usage:   "Optional directory polled for dropped JSON event files",
				Sources: cli.EnvVars("EVENT_DIR"),
			},
			&cli.StringFlag{
				Name:    "event-user",
				Usage:   "User on whose behalf dropped events are fetched",
				Value:   "local",
				Sources: cli.EnvVars("EVENT_USER"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Source polling interval",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export spans via OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runEngine,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runEngine(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("routinely-engine")

	logger.Info("Initializing routinely engine")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	if redisURL := command.String("redis-url"); redisURL != "" {
		ledger, err := cmd.NewRedisDedupLedger(ctx, logger, redisURL, command.Duration("claim-ttl"))
		if err != nil {
			return err
		}

		store = cmd.WithDedupLedger(store, ledger)
	}

	bus := cmd.NewEventBus(command.String("event-bus"), "routinely-engine", logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	messenger := console.NewMessenger(logger)
	aiClient := console.NewEchoAIClient()
	handlers := cmd.NewRegistry(logger, messenger, aiClient)

	service := NewEngineService(logger, store, handlers, bus).
		WithClaimTTL(command.Duration("claim-ttl"))

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "routinely-engine")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		service.Engine().WithTracer(tracer)
	}

	if eventDir := command.String("event-dir"); eventDir != "" {
		service.RegisterFileDropSources(eventDir, command.String("event-user"), command.Duration("poll-interval"))
	}

	return service.Run(ctx)
}
