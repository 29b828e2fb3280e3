// Package console provides local development implementations of the
// integration interfaces. Messages are written to the structured log instead
// of a chat platform, and AI transforms echo their input. Production
// deployments swap these for real platform adapters.
package console

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/routinely/routinely/pkg/models"
)

type Messenger struct {
	logger *slog.Logger
}

func NewMessenger(logger *slog.Logger) *Messenger {
	return &Messenger{logger: logger.With("module", "console-messenger")}
}

func (m *Messenger) Send(ctx context.Context, targetUserID, platform, text string) error {
	m.logger.InfoContext(ctx, "Message delivered",
		"target_user_id", targetUserID,
		"platform", platform,
		"text", text)

	return nil
}

func (m *Messenger) Reply(ctx context.Context, platform, chatID, text string) error {
	m.logger.InfoContext(ctx, "Reply delivered",
		"platform", platform,
		"chat_id", chatID,
		"text", text)

	return nil
}

// EchoAIClient tags the input with the requested mode instead of calling a
// model endpoint.
type EchoAIClient struct{}

func NewEchoAIClient() *EchoAIClient {
	return &EchoAIClient{}
}

func (*EchoAIClient) Transform(_ context.Context, mode models.AITransformMode, input string, _ map[string]string) (string, error) {
	return fmt.Sprintf("[%s] %s", mode, input), nil
}
