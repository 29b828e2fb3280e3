package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

// ScheduleRepository stores schedule-trigger rows with precomputed due times
// so the poller can select due work with a single indexed query.
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, workflow_id, trigger_id, cron_expression,
			next_due_at, last_fired_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			next_due_at = EXCLUDED.next_due_at,
			last_fired_at = EXCLUDED.last_fired_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		schedule.ID, schedule.WorkflowID, schedule.TriggerID,
		schedule.CronExpression, schedule.NextDueAt, schedule.LastFiredAt,
		schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}

	return nil
}

func (r *ScheduleRepository) GetByTriggerID(ctx context.Context, triggerID string) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, trigger_id, cron_expression, next_due_at,
			last_fired_at, active, created_at, updated_at
		FROM schedules WHERE trigger_id = $1`, triggerID)

	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, fmt.Errorf("failed to get schedule for trigger %s: %w", triggerID, err)
	}

	return schedule, nil
}

func (r *ScheduleRepository) DueBefore(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, trigger_id, cron_expression, next_due_at,
			last_fired_at, active, created_at, updated_at
		FROM schedules WHERE active AND next_due_at <= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}

	defer rows.Close()

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}

	return schedules, nil
}

func (r *ScheduleRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete schedules for workflow %s: %w", workflowID, err)
	}

	return nil
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		schedule    models.Schedule
		lastFiredAt sql.NullTime
	)

	err := row.Scan(&schedule.ID, &schedule.WorkflowID, &schedule.TriggerID,
		&schedule.CronExpression, &schedule.NextDueAt, &lastFiredAt,
		&schedule.Active, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastFiredAt.Valid {
		schedule.LastFiredAt = &lastFiredAt.Time
	}

	return &schedule, nil
}
