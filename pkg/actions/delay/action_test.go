package delay

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFactory(t *testing.T) {
	factory := NewFactory()
	assert.Equal(t, models.ActionTypeDelay, factory.Type())

	_, err := factory.Create(&models.Action{ID: "a1", Type: models.ActionTypeDelay})
	assert.ErrorIs(t, err, models.ErrInvalidAction)

	_, err = factory.Create(&models.Action{
		ID:    "a1",
		Type:  models.ActionTypeDelay,
		Delay: &models.DelayConfig{Duration: -time.Second},
	})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}

func TestAction_Execute_WaitsForDuration(t *testing.T) {
	action := NewAction(&models.DelayConfig{Duration: 20 * time.Millisecond})

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	start := time.Now()
	output, warnings, err := action.Execute(context.Background(), executionCtx, testLogger())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "20ms", output)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestAction_Execute_Cancellation(t *testing.T) {
	action := NewAction(&models.DelayConfig{Duration: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	executionCtx := models.NewExecutionContext("exec-1", "wf-1", "alice")

	start := time.Now()
	_, _, err := action.Execute(ctx, executionCtx, testLogger())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
