// Package main serves the routinely REST API.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/routinely/routinely/pkg/cmd"
	"github.com/routinely/routinely/pkg/integration/console"
	"github.com/routinely/routinely/pkg/log"
	"github.com/routinely/routinely/pkg/otelhelper"
	"github.com/routinely/routinely/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "routinely-api",
		Usage:                 "Start the routinely API server",
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
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port",
				Value:   8080,
				Sources: cli.EnvVars("PORT"),
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
		Action: runAPI,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("routinely-api")

	logger.Info("Initializing routinely API", "port", command.Int("port"))

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	bus := cmd.NewEventBus(command.String("event-bus"), "routinely-api", logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	messenger := console.NewMessenger(logger)
	handlers := cmd.NewRegistry(logger, messenger, console.NewEchoAIClient())

	engine := workflow.NewEngine(logger, store, handlers, bus)

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "routinely-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		engine.WithTracer(tracer)
	}

	api := NewAPI(logger, store, handlers, engine)

	return api.Start(command.Int("port"))
}
