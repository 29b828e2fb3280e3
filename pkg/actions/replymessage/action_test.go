package replymessage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/mocks"
	"github.com/routinely/routinely/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFactory(t *testing.T) {
	factory := NewFactory(&mocks.MockMessenger{})
	assert.Equal(t, models.ActionTypeReply, factory.Type())

	_, err := factory.Create(&models.Action{ID: "a1", Type: models.ActionTypeReply})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}

func TestAction_Execute_RepliesIntoTriggeringChat(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Reply", mock.Anything, "telegram", "chat-42", "got it, alice").Return(nil)

	action := NewAction(&models.ReplyConfig{Text: "got it, {{message_sender}}"}, messenger)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set(models.VarChatID, "chat-42")
	executionCtx.Set(models.VarPlatform, "telegram")
	executionCtx.Set(models.VarMessageSender, "alice")

	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "got it, alice", output)
	assert.Empty(t, warnings)
	messenger.AssertExpectations(t)
}

func TestAction_Execute_NoConversation(t *testing.T) {
	messenger := &mocks.MockMessenger{}

	action := NewAction(&models.ReplyConfig{Text: "hello"}, messenger)

	// A schedule-triggered execution has no chat to reply into.
	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	assert.ErrorIs(t, err, ErrNoConversation)
	messenger.AssertNotCalled(t, "Reply")
}
