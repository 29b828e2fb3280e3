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

// WorkflowRepository stores each workflow as one JSON file.
type WorkflowRepository struct {
	root          string
	executionRepo *ExecutionRepository
	ledger        *DedupLedger
}

func NewWorkflowRepository(root string, executionRepo *ExecutionRepository, ledger *DedupLedger) *WorkflowRepository {
	return &WorkflowRepository{root: root, executionRepo: executionRepo, ledger: ledger}
}

func (r *WorkflowRepository) dir() string {
	return filepath.Join(r.root, "workflows")
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.WriteFile(r.path(workflow.ID), data, 0o644); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes the workflow file and cascades to its execution history and
// dedup claims.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	if err := os.Remove(r.path(id)); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := r.executionRepo.deleteByWorkflow(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := r.ledger.deleteByWorkflow(ctx, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (r *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		workflow, err := r.GetByID(ctx, entry[:len(entry)-len(".json")])
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.filter(ctx, func(w *models.Workflow) bool {
		return w.OwnerID == userID
	})
}

func (r *WorkflowRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.filter(ctx, func(w *models.Workflow) bool {
		return w.IsSharedWith(userID)
	})
}

func (r *WorkflowRepository) filter(ctx context.Context, keep func(*models.Workflow) bool) ([]*models.Workflow, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if keep(workflow) {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}
