package aitransform

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
	factory := NewFactory(&mocks.MockAIClient{})
	assert.Equal(t, models.ActionTypeAITransform, factory.Type())

	_, err := factory.Create(&models.Action{ID: "a1", Type: models.ActionTypeAITransform})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}

func TestAction_Execute_ResolvesInputAndParams(t *testing.T) {
	client := &mocks.MockAIClient{}
	client.On("Transform", mock.Anything, models.AIModeTranslate, "bonjour",
		map[string]string{"target_language": "en"}).Return("hello", nil)

	action := NewAction(&models.AITransformConfig{
		Mode:   models.AIModeTranslate,
		Input:  "{{trigger_content}}",
		Params: map[string]string{"target_language": "{{lang}}"},
	}, client)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")
	executionCtx.Set(models.VarTriggerContent, "bonjour")
	executionCtx.Set("lang", "en")

	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "hello", output)
	assert.Empty(t, warnings)
	client.AssertExpectations(t)
}

func TestAction_Execute_TransformFailure(t *testing.T) {
	client := &mocks.MockAIClient{}
	client.On("Transform", mock.Anything, models.AIModeSummarize, "text", mock.Anything).
		Return("", errors.New("model unavailable"))

	action := NewAction(&models.AITransformConfig{
		Mode:  models.AIModeSummarize,
		Input: "text",
	}, client)

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	_, _, err := action.Execute(context.Background(), executionCtx, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}
