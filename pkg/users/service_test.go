package users

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence/file"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewService(logger, file.NewPersistence(t.TempDir()))
}

func TestSignIn_CreatesOnFirstSignIn(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	user, created, err := service.SignIn(ctx, &models.WorkflowUser{
		Email:       "alice@example.com",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestSignIn_SecondSignInUpdatesProfile(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	first, created, err := service.SignIn(ctx, &models.WorkflowUser{Email: "alice@example.com"})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := service.SignIn(ctx, &models.WorkflowUser{
		ID:          first.ID,
		Email:       "alice@example.com",
		DisplayName: "Alice B.",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice B.", second.DisplayName)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestSignIn_UnknownIDCreatesWithThatID(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	user, created, err := service.SignIn(ctx, &models.WorkflowUser{ID: "alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", user.ID)
}

func TestEnsureChatIdentity_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	first, err := service.EnsureChatIdentity(ctx, "@boss")
	require.NoError(t, err)
	assert.Equal(t, "@boss", first.ChatIdentity)
	assert.Equal(t, "@boss", first.DisplayName)

	second, err := service.EnsureChatIdentity(ctx, "@boss")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "a known identity is not re-created")
}
