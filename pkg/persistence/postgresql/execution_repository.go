package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/routinely/routinely/pkg/models"
)

// ExecutionRepository appends finalized execution records. There is no update
// path: records are immutable once written.
type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	outcomes, err := json.Marshal(record.ActionOutcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal action outcomes for execution %s: %w", record.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, trigger_user_id, trigger_type,
			started_at, finished_at, success, action_outcomes, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.WorkflowID, record.TriggerUserID, record.TriggerType,
		record.StartedAt, record.FinishedAt, record.Success, outcomes, record.Message)
	if err != nil {
		return fmt.Errorf("failed to append execution record %s: %w", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) History(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, trigger_user_id, trigger_type,
			started_at, finished_at, success, action_outcomes, message
		FROM executions WHERE workflow_id = $1
		ORDER BY started_at DESC`

	args := []any{workflowID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution history: %w", err)
	}

	defer rows.Close()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		var (
			record   models.ExecutionRecord
			outcomes []byte
		)

		err := rows.Scan(&record.ID, &record.WorkflowID, &record.TriggerUserID,
			&record.TriggerType, &record.StartedAt, &record.FinishedAt,
			&record.Success, &outcomes, &record.Message)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		if err := json.Unmarshal(outcomes, &record.ActionOutcomes); err != nil {
			return nil, fmt.Errorf("failed to decode action outcomes: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution rows: %w", err)
	}

	return records, nil
}
