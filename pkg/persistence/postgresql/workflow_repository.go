package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

// WorkflowRepository stores workflows with their triggers and actions as
// JSONB documents. Saves replace the whole record, matching the storage
// contract the engine relies on.
type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `id, name, description, owner_id, kind, is_public,
	shared_with, editor_ids, triggers, actions, created_at, updated_at`

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	sharedWith, err := json.Marshal(workflow.SharedWith)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	editorIDs, err := json.Marshal(workflow.EditorIDs)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	triggers, err := json.Marshal(workflow.Triggers)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	actions, err := json.Marshal(workflow.Actions)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			owner_id = EXCLUDED.owner_id,
			kind = EXCLUDED.kind,
			is_public = EXCLUDED.is_public,
			shared_with = EXCLUDED.shared_with,
			editor_ids = EXCLUDED.editor_ids,
			triggers = EXCLUDED.triggers,
			actions = EXCLUDED.actions,
			updated_at = EXCLUDED.updated_at`,
		workflow.ID, workflow.Name, workflow.Description, workflow.OwnerID,
		workflow.Kind, workflow.IsPublic, sharedWith, editorIDs,
		triggers, actions, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes the workflow. Executions and schedules cascade through
// foreign keys; dedup claims are keyed by suffix and removed explicitly.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM dedup_claims WHERE event_key LIKE '%:' || $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (r *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
}

func (r *WorkflowRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE owner_id = $1 ORDER BY created_at`, userID)
}

func (r *WorkflowRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE shared_with @> to_jsonb(ARRAY[$1::text]) ORDER BY created_at`, userID)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow rows: %w", err)
	}

	return workflows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow   models.Workflow
		sharedWith []byte
		editorIDs  []byte
		triggers   []byte
		actions    []byte
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description,
		&workflow.OwnerID, &workflow.Kind, &workflow.IsPublic,
		&sharedWith, &editorIDs, &triggers, &actions,
		&workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sharedWith, &workflow.SharedWith); err != nil {
		return nil, fmt.Errorf("failed to decode shared_with: %w", err)
	}

	if err := json.Unmarshal(editorIDs, &workflow.EditorIDs); err != nil {
		return nil, fmt.Errorf("failed to decode editor_ids: %w", err)
	}

	if err := json.Unmarshal(triggers, &workflow.Triggers); err != nil {
		return nil, fmt.Errorf("failed to decode triggers: %w", err)
	}

	if err := json.Unmarshal(actions, &workflow.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions: %w", err)
	}

	return &workflow, nil
}
