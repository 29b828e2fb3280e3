package conditional

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/actions/sendmessage"
	"github.com/routinely/routinely/pkg/mocks"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRegistry(messenger *mocks.MockMessenger) *registry.Registry {
	handlers := registry.NewRegistry(testLogger())
	handlers.Register(sendmessage.NewFactory(messenger))
	handlers.Register(NewFactory(handlers))

	return handlers
}

func branchAction(id, text string) *models.Action {
	return &models.Action{
		ID:          id,
		Name:        id,
		Type:        models.ActionTypeSendMessage,
		Enabled:     true,
		SendMessage: &models.SendMessageConfig{TargetUserID: "bob", Text: text},
	}
}

func TestAction_Execute_ThenBranch(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "bob", "", "above threshold").Return(nil)

	action := NewAction(&models.ConditionalConfig{
		Expression: "{{count}} > 3",
		Then:       branchAction("then-1", "above threshold"),
		Else:       branchAction("else-1", "below threshold"),
	}, testRegistry(messenger))

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set("count", "5")

	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "above threshold", output)
	assert.Empty(t, warnings)
	messenger.AssertExpectations(t)
}

func TestAction_Execute_ElseBranch(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "bob", "", "below threshold").Return(nil)

	action := NewAction(&models.ConditionalConfig{
		Expression: "{{count}} > 3",
		Then:       branchAction("then-1", "above threshold"),
		Else:       branchAction("else-1", "below threshold"),
	}, testRegistry(messenger))

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set("count", "2")

	output, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "below threshold", output)
	messenger.AssertExpectations(t)
}

func TestAction_Execute_NoElseBranch(t *testing.T) {
	messenger := &mocks.MockMessenger{}

	action := NewAction(&models.ConditionalConfig{
		Expression: "{{count}} > 3",
		Then:       branchAction("then-1", "above threshold"),
	}, testRegistry(messenger))

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set("count", "1")

	output, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "false", output)
	messenger.AssertNotCalled(t, "Send")
}

func TestAction_Execute_BranchOutputVariable(t *testing.T) {
	messenger := &mocks.MockMessenger{}
	messenger.On("Send", mock.Anything, "bob", "", "notified").Return(nil)

	branch := branchAction("then-1", "notified")
	branch.OutputVariable = "notification"

	action := NewAction(&models.ConditionalConfig{
		Expression: "true",
		Then:       branch,
	}, testRegistry(messenger))

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)

	value, ok := executionCtx.Get("notification")
	assert.True(t, ok)
	assert.Equal(t, "notified", value)
}

func TestAction_Execute_InvalidExpression(t *testing.T) {
	action := NewAction(&models.ConditionalConfig{
		Expression: "not a boolean",
		Then:       branchAction("then-1", "x"),
	}, testRegistry(&mocks.MockMessenger{}))

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	assert.Error(t, err)
}
