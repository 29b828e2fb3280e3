// Package delay suspends one execution for a fixed duration. Only the
// execution's own goroutine waits; other executions keep running.
package delay

import (
	"context"
	"log/slog"
	"time"

	"github.com/routinely/routinely/pkg/models"
)

type Action struct {
	config *models.DelayConfig
}

func NewAction(config *models.DelayConfig) *Action {
	return &Action{config: config}
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, logger *slog.Logger) (string, []string, error) {
	logger = logger.With("action_type", models.ActionTypeDelay)
	logger.InfoContext(ctx, "Delaying execution", "duration", a.config.Duration)

	timer := time.NewTimer(a.config.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-timer.C:
		return a.config.Duration.String(), nil, nil
	}
}
