package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/routinely/routinely/pkg/models"
)

// ExecutionRepository stores execution records as JSON files grouped per
// workflow. Records are written once, after finalization.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) dir(workflowID string) string {
	return filepath.Join(r.root, "executions", workflowID)
}

func (r *ExecutionRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	dir := r.dir(record.WorkflowID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create execution directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution record %s: %w", record.ID, err)
	}

	// Prefix with the start timestamp so directory order matches history order.
	name := fmt.Sprintf("%d-%s.json", record.StartedAt.UnixNano(), record.ID)

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution record %s: %w", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) History(_ context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	entries, err := fs.Glob(os.DirFS(r.dir(workflowID)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}

	// Newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(entries)))

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	records := make([]*models.ExecutionRecord, 0, len(entries))

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(r.dir(workflowID), entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution record %s: %w", entry, err)
		}

		var record models.ExecutionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution record %s: %w", entry, err)
		}

		records = append(records, &record)
	}

	return records, nil
}

func (r *ExecutionRepository) deleteByWorkflow(workflowID string) error {
	return os.RemoveAll(r.dir(workflowID))
}
