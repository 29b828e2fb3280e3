// Package replymessage posts a reply into the conversation the triggering
// message arrived in.
package replymessage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/template"
)

// ErrNoConversation is returned when the execution was not started by a
// conversational event, so there is nothing to reply to.
var ErrNoConversation = errors.New("reply requires a conversation context")

type Action struct {
	config    *models.ReplyConfig
	messenger integration.Messenger
}

func NewAction(config *models.ReplyConfig, messenger integration.Messenger) *Action {
	return &Action{config: config, messenger: messenger}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, []string, error) {
	logger = logger.With("action_type", models.ActionTypeReply)

	chatID, _ := executionCtx.Get(models.VarChatID)
	if chatID == "" {
		return "", nil, ErrNoConversation
	}

	platform, _ := executionCtx.Get(models.VarPlatform)

	text, warnings := template.Resolve(a.config.Text, executionCtx)

	err := a.messenger.Reply(ctx, platform, chatID, text)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to reply in chat %s: %w", chatID, err)
	}

	logger.InfoContext(ctx, "Reply sent", "chat_id", chatID, "platform", platform)

	return text, warnings, nil
}
