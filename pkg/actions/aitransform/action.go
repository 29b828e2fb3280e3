// Package aitransform applies an AI-derived transformation to resolved input
// text through the AI client collaborator.
package aitransform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/template"
)

type Action struct {
	config *models.AITransformConfig
	client integration.AIClient
}

func NewAction(config *models.AITransformConfig, client integration.AIClient) *Action {
	return &Action{config: config, client: client}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, []string, error) {
	logger = logger.With("action_type", models.ActionTypeAITransform, "mode", a.config.Mode)

	input, warnings := template.Resolve(a.config.Input, executionCtx)

	params := make(map[string]string, len(a.config.Params))

	for name, value := range a.config.Params {
		resolved, paramWarnings := template.Resolve(value, executionCtx)
		warnings = append(warnings, paramWarnings...)
		params[name] = resolved
	}

	output, err := a.client.Transform(ctx, a.config.Mode, input, params)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to apply %s transform: %w", a.config.Mode, err)
	}

	logger.InfoContext(ctx, "Transform applied", "input_length", len(input), "output_length", len(output))

	return output, warnings, nil
}
