package main

import (
	"context"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/routinely/routinely/pkg/eventbus"
	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/integration/filedrop"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/registry"
	"github.com/routinely/routinely/pkg/trigger"
	"github.com/routinely/routinely/pkg/workflow"
)

// EngineService ties the trigger manager to the execution engine and runs
// them until the process is told to stop.
type EngineService struct {
	logger  *slog.Logger
	store   persistence.Persistence
	manager *trigger.Manager
	engine  *workflow.Engine
}

func NewEngineService(
	logger *slog.Logger,
	store persistence.Persistence,
	handlers *registry.Registry,
	bus eventbus.EventBus,
) *EngineService {
	engine := workflow.NewEngine(logger, store, handlers, bus)
	manager := trigger.NewManager(logger, store, engine.Dispatch)

	return &EngineService{
		logger:  logger,
		store:   store,
		manager: manager,
		engine:  engine,
	}
}

// WithClaimTTL sets how long dedup claims are kept before the manager's
// eviction pass removes them.
func (s *EngineService) WithClaimTTL(ttl time.Duration) *EngineService {
	s.manager.WithClaimTTL(ttl)

	return s
}

// RegisterFileDropSources polls one subdirectory per source type (chat/,
// email/, location/) for dropped JSON event files. Platform adapters register
// their sources the same way.
func (s *EngineService) RegisterFileDropSources(eventDir, userID string, interval time.Duration) {
	for _, sourceType := range []models.SourceType{models.SourceTypeChat, models.SourceTypeEmail, models.SourceTypeLocation} {
		source := filedrop.NewSource(s.logger, filepath.Join(eventDir, string(sourceType)), sourceType)
		s.manager.RegisterSource(source, integration.SourceConfig{
			Source: sourceType,
			UserID: userID,
		}, interval)
	}
}

// Run blocks until SIGINT or SIGTERM, then drains in-flight executions.
func (s *EngineService) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.manager.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	s.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.manager.Stop(shutdownCtx)
}

func (s *EngineService) Engine() *workflow.Engine {
	return s.engine
}
