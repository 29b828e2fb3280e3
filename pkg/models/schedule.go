package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a persisted entry for one schedule trigger. The next fire time
// is precomputed so a single poller can query for due rows without keeping an
// in-memory timer per trigger, and LastFiredAt survives process restarts so a
// due time is never fired twice.
type Schedule struct {
	ID             string     `json:"id"           validate:"required"`
	WorkflowID     string     `json:"workflow_id"  validate:"required"`
	TriggerID      string     `json:"trigger_id"   validate:"required"`
	CronExpression string     `json:"cron_expression" validate:"required"`
	NextDueAt      time.Time  `json:"next_due_at"`
	LastFiredAt    *time.Time `json:"last_fired_at,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

var ErrInvalidSchedule = errors.New("invalid schedule configuration")

func cronParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// NewSchedule creates a schedule with its first due time computed from now.
func NewSchedule(id, workflowID, triggerID, cronExpression string) (*Schedule, error) {
	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		WorkflowID:     workflowID,
		TriggerID:      triggerID,
		CronExpression: cronExpression,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := schedule.advance(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// MarkFired records the fire and advances NextDueAt past the given time.
func (s *Schedule) MarkFired(firedAt time.Time) error {
	fired := firedAt.UTC()
	s.LastFiredAt = &fired

	return s.advance(fired)
}

func (s *Schedule) advance(from time.Time) error {
	cronSchedule, err := cronParser().Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(from)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue reports whether the schedule should fire at the given time.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate checks required fields and the cron expression.
func (s *Schedule) Validate() error {
	if s.ID == "" || s.WorkflowID == "" || s.TriggerID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	_, err := cronParser().Parse(s.CronExpression)

	return err
}
