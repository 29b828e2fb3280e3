package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.WorkflowUser, error) {
	return r.get(ctx, `
		SELECT id, email, display_name, chat_identity, created_at, updated_at
		FROM workflow_users WHERE id = $1`, id)
}

func (r *UserRepository) GetByChatIdentity(ctx context.Context, identity string) (*models.WorkflowUser, error) {
	return r.get(ctx, `
		SELECT id, email, display_name, chat_identity, created_at, updated_at
		FROM workflow_users WHERE chat_identity = $1`, identity)
}

func (r *UserRepository) get(ctx context.Context, query, arg string) (*models.WorkflowUser, error) {
	var (
		user         models.WorkflowUser
		chatIdentity sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email,
		&user.DisplayName, &chatIdentity, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if chatIdentity.Valid {
		user.ChatIdentity = chatIdentity.String
	}

	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *models.WorkflowUser) error {
	var chatIdentity any
	if user.ChatIdentity != "" {
		chatIdentity = user.ChatIdentity
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_users (id, email, display_name, chat_identity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			chat_identity = EXCLUDED.chat_identity,
			updated_at = EXCLUDED.updated_at`,
		user.ID, user.Email, user.DisplayName, chatIdentity,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	return nil
}
