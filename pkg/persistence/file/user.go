package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

// UserRepository stores one JSON file per user.
type UserRepository struct {
	root string
}

func NewUserRepository(root string) *UserRepository {
	return &UserRepository{root: root}
}

func (r *UserRepository) dir() string {
	return filepath.Join(r.root, "users")
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.WorkflowUser, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}

	var user models.WorkflowUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}

	return &user, nil
}

func (r *UserRepository) GetByChatIdentity(_ context.Context, identity string) (*models.WorkflowUser, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list user files: %w", err)
	}

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(r.dir(), entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read user file %s: %w", entry, err)
		}

		var user models.WorkflowUser
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to decode user file %s: %w", entry, err)
		}

		if user.ChatIdentity == identity {
			return &user, nil
		}
	}

	return nil, persistence.ErrUserNotFound
}

func (r *UserRepository) Save(_ context.Context, user *models.WorkflowUser) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}

	return os.WriteFile(filepath.Join(r.dir(), user.ID+".json"), data, 0o644)
}
