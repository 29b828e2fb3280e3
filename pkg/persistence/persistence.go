// Package persistence defines the storage contracts the engine consumes.
// Implementations live in the file, postgresql and redis subpackages; the
// core only relies on the atomic semantics declared here.
package persistence

import (
	"context"
	"time"

	"github.com/routinely/routinely/pkg/models"
)

// Persistence aggregates the repositories one backend provides.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduleRepository() ScheduleRepository
	UserRepository() UserRepository
	DedupLedger() DedupLedger

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow together with its execution history and
	// dedup claims.
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error)
	ListSharedWith(ctx context.Context, userID string) ([]*models.Workflow, error)
	All(ctx context.Context) ([]*models.Workflow, error)
}

// ExecutionRepository stores finalized execution records. Records are
// append-only; History returns newest first.
type ExecutionRepository interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
	History(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error)
}

// ScheduleRepository stores schedule-trigger rows with precomputed due times.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetByTriggerID(ctx context.Context, triggerID string) (*models.Schedule, error)
	DueBefore(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// UserRepository stores workflow users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowUser, error)
	GetByChatIdentity(ctx context.Context, identity string) (*models.WorkflowUser, error)
	Save(ctx context.Context, user *models.WorkflowUser) error
}

// DedupLedger is the durable set of handled (event, workflow) pairs.
//
// TryClaim must be atomic under concurrent callers: for a given key it
// returns true exactly once across all processes sharing the backend. Losing
// the race is not an error.
type DedupLedger interface {
	TryClaim(ctx context.Context, key string) (bool, error)
	Evict(ctx context.Context, olderThan time.Time) error
}
