// Package conditional evaluates a boolean expression against the execution's
// variables and runs the matching branch inline.
package conditional

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
	"github.com/routinely/routinely/pkg/template"
)

type Action struct {
	config      *models.ConditionalConfig
	handlers    *registry.Registry
	interpreter models.ConditionInterpreter
}

func NewAction(config *models.ConditionalConfig, handlers *registry.Registry) *Action {
	return &Action{config: config, handlers: handlers}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, []string, error) {
	logger = logger.With("action_type", models.ActionTypeConditional)

	expression, warnings := template.Resolve(a.config.Expression, executionCtx)

	result, err := a.interpreter.Evaluate(expression)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to evaluate condition: %w", err)
	}

	branch := a.config.Then
	if !result {
		branch = a.config.Else
	}

	logger.InfoContext(ctx, "Condition evaluated", "expression", expression, "result", result)

	if branch == nil {
		return fmt.Sprintf("%t", result), warnings, nil
	}

	handler, err := a.handlers.CreateHandler(branch)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to build branch action %s: %w", branch.ID, err)
	}

	output, branchWarnings, err := handler.Execute(ctx, executionCtx, logger.With("branch_action_id", branch.ID))
	warnings = append(warnings, branchWarnings...)

	if err != nil {
		return "", warnings, fmt.Errorf("branch action %s: %w", branch.ID, err)
	}

	if branch.OutputVariable != "" {
		executionCtx.Set(branch.OutputVariable, output)
	}

	return output, warnings, nil
}
