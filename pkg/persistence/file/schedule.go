package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

// ScheduleRepository stores one JSON file per schedule-trigger row.
type ScheduleRepository struct {
	root string
}

func NewScheduleRepository(root string) *ScheduleRepository {
	return &ScheduleRepository{root: root}
}

func (r *ScheduleRepository) dir() string {
	return filepath.Join(r.root, "schedules")
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create schedule directory: %w", err)
	}

	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule %s: %w", schedule.ID, err)
	}

	return os.WriteFile(filepath.Join(r.dir(), schedule.ID+".json"), data, 0o644)
}

func (r *ScheduleRepository) GetByTriggerID(ctx context.Context, triggerID string) (*models.Schedule, error) {
	schedules, err := r.all()
	if err != nil {
		return nil, err
	}

	for _, schedule := range schedules {
		if schedule.TriggerID == triggerID {
			return schedule, nil
		}
	}

	return nil, persistence.ErrScheduleNotFound
}

func (r *ScheduleRepository) DueBefore(_ context.Context, now time.Time) ([]*models.Schedule, error) {
	schedules, err := r.all()
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)

	for _, schedule := range schedules {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	schedules, err := r.all()
	if err != nil {
		return err
	}

	for _, schedule := range schedules {
		if schedule.WorkflowID == workflowID {
			if err := os.Remove(filepath.Join(r.dir(), schedule.ID+".json")); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	return nil
}

func (r *ScheduleRepository) all() ([]*models.Schedule, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule files: %w", err)
	}

	schedules := make([]*models.Schedule, 0, len(entries))

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(r.dir(), entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read schedule %s: %w", entry, err)
		}

		var schedule models.Schedule
		if err := json.Unmarshal(data, &schedule); err != nil {
			return nil, fmt.Errorf("failed to decode schedule %s: %w", entry, err)
		}

		schedules = append(schedules, &schedule)
	}

	return schedules, nil
}
