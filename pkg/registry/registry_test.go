package registry_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/actions/aitransform"
	"github.com/routinely/routinely/pkg/actions/conditional"
	"github.com/routinely/routinely/pkg/actions/delay"
	"github.com/routinely/routinely/pkg/actions/replymessage"
	"github.com/routinely/routinely/pkg/actions/sendmessage"
	"github.com/routinely/routinely/pkg/mocks"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fullRegistry() *registry.Registry {
	handlers := registry.NewRegistry(testLogger())
	handlers.Register(sendmessage.NewFactory(&mocks.MockMessenger{}))
	handlers.Register(replymessage.NewFactory(&mocks.MockMessenger{}))
	handlers.Register(aitransform.NewFactory(&mocks.MockAIClient{}))
	handlers.Register(delay.NewFactory())
	handlers.Register(conditional.NewFactory(handlers))

	return handlers
}

func TestRegistry_CoversEveryActionType(t *testing.T) {
	handlers := fullRegistry()

	registered := handlers.RegisteredTypes()
	require.Len(t, registered, len(models.KnownActionTypes))

	for _, actionType := range models.KnownActionTypes {
		assert.Contains(t, registered, actionType)
	}
}

func TestRegistry_CreateHandler(t *testing.T) {
	handlers := fullRegistry()

	handler, err := handlers.CreateHandler(&models.Action{
		ID:          "a1",
		Name:        "notify",
		Type:        models.ActionTypeSendMessage,
		SendMessage: &models.SendMessageConfig{Text: "hello"},
	})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRegistry_CreateHandler_UnregisteredType(t *testing.T) {
	handlers := registry.NewRegistry(testLogger())

	_, err := handlers.CreateHandler(&models.Action{
		ID:   "a1",
		Type: models.ActionTypeDelay,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_CreateHandler_SchemaRejectsBadConfig(t *testing.T) {
	handlers := fullRegistry()

	// The variant payload is present, so Validate passes, but the schema
	// rejects the empty text.
	_, err := handlers.CreateHandler(&models.Action{
		ID:          "a1",
		Name:        "notify",
		Type:        models.ActionTypeSendMessage,
		SendMessage: &models.SendMessageConfig{Text: ""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation errors")
}

func TestRegistry_CreateHandler_MissingVariantConfig(t *testing.T) {
	handlers := fullRegistry()

	_, err := handlers.CreateHandler(&models.Action{
		ID:   "a1",
		Name: "wait",
		Type: models.ActionTypeDelay,
	})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}
