// Package sendmessage delivers a message to a user through the messenger
// collaborator.
package sendmessage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/template"
)

type Action struct {
	config    *models.SendMessageConfig
	messenger integration.Messenger
}

func NewAction(config *models.SendMessageConfig, messenger integration.Messenger) *Action {
	return &Action{config: config, messenger: messenger}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, []string, error) {
	logger = logger.With("action_type", models.ActionTypeSendMessage)

	text, warnings := template.Resolve(a.config.Text, executionCtx)

	target, targetWarnings := template.Resolve(a.config.TargetUserID, executionCtx)
	warnings = append(warnings, targetWarnings...)

	if target == "" {
		target = executionCtx.TriggerUserID
	}

	err := a.messenger.Send(ctx, target, a.config.Platform, text)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to send message to %s: %w", target, err)
	}

	logger.InfoContext(ctx, "Message sent", "target_user_id", target, "platform", a.config.Platform)

	return text, warnings, nil
}
