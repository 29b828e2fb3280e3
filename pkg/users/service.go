// Package users provisions workflow users. Identities appear in two ways:
// an explicit sign-in through the API, or an inbound message from a chat
// identity the engine has not seen before.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

type Service struct {
	logger      *slog.Logger
	persistence persistence.Persistence
}

func NewService(logger *slog.Logger, store persistence.Persistence) *Service {
	return &Service{
		logger:      logger.With("module", "user-service"),
		persistence: store,
	}
}

// SignIn creates the user on first sign-in and refreshes profile fields on
// subsequent ones. The returned flag reports whether the user was created.
func (s *Service) SignIn(ctx context.Context, user *models.WorkflowUser) (*models.WorkflowUser, bool, error) {
	now := time.Now().UTC()

	if user.ID != "" {
		existing, err := s.persistence.UserRepository().GetByID(ctx, user.ID)

		switch {
		case err == nil:
			existing.Email = user.Email
			existing.DisplayName = user.DisplayName
			existing.ChatIdentity = user.ChatIdentity
			existing.UpdatedAt = now

			if err := s.persistence.UserRepository().Save(ctx, existing); err != nil {
				return nil, false, fmt.Errorf("failed to update user %s: %w", existing.ID, err)
			}

			return existing, false, nil
		case !errors.Is(err, persistence.ErrUserNotFound):
			return nil, false, err
		}
	} else {
		user.ID = uuid.New().String()
	}

	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.persistence.UserRepository().Save(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}

	s.logger.InfoContext(ctx, "User created", "user_id", user.ID, "chat_identity", user.ChatIdentity)

	return user, true, nil
}

// EnsureChatIdentity returns the user behind a chat identity, creating one on
// the first inbound message from an unknown sender.
func (s *Service) EnsureChatIdentity(ctx context.Context, identity string) (*models.WorkflowUser, error) {
	existing, err := s.persistence.UserRepository().GetByChatIdentity(ctx, identity)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, persistence.ErrUserNotFound) {
		return nil, err
	}

	now := time.Now().UTC()

	user := &models.WorkflowUser{
		ID:           uuid.New().String(),
		DisplayName:  identity,
		ChatIdentity: identity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.persistence.UserRepository().Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user for chat identity %s: %w", identity, err)
	}

	s.logger.InfoContext(ctx, "User created from inbound message", "user_id", user.ID, "chat_identity", identity)

	return user, nil
}
