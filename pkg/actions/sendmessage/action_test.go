package sendmessage

import (
	"context"
	"errors"
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
	assert.Equal(t, models.ActionTypeSendMessage, factory.Type())

	_, err := factory.Create(&models.Action{ID: "a1", Type: models.ActionTypeSendMessage})
	assert.ErrorIs(t, err, models.ErrInvalidAction)

	handler, err := factory.Create(&models.Action{
		ID:          "a1",
		Type:        models.ActionTypeSendMessage,
		SendMessage: &models.SendMessageConfig{Text: "hi"},
	})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestAction_Execute_ResolvesPlaceholders(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "bob", "telegram", "urgent: server down").Return(nil)

	action := NewAction(&models.SendMessageConfig{
		TargetUserID: "bob",
		Platform:     "telegram",
		Text:         "urgent: {{trigger_content}}",
	}, messenger)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set(models.VarTriggerContent, "server down")

	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "urgent: server down", output)
	assert.Empty(t, warnings)
	messenger.AssertExpectations(t)
}

func TestAction_Execute_DefaultsToTriggeringUser(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "alice", "", "hello").Return(nil)

	action := NewAction(&models.SendMessageConfig{Text: "hello"}, messenger)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	messenger.AssertExpectations(t)
}

func TestAction_Execute_UnresolvedPlaceholderWarns(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "alice", "", "value: ").Return(nil)

	action := NewAction(&models.SendMessageConfig{Text: "value: {{missing}}"}, messenger)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "value: ", output)
	assert.Equal(t, []string{"missing"}, warnings)
}

func TestAction_Execute_SendFailure(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "bob", "", "hi").Return(errors.New("transport down"))

	action := NewAction(&models.SendMessageConfig{TargetUserID: "bob", Text: "hi"}, messenger)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport down")
}
