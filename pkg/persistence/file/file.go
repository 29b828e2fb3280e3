// Package file provides a file-system backed persistence implementation.
// It is meant for development and tests: the dedup ledger is only atomic
// within a single process sharing one directory tree.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/routinely/routinely/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	scheduleRepo  *ScheduleRepository
	userRepo      *UserRepository
	ledger        *DedupLedger
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	executionRepo := NewExecutionRepository(cleanRoot)
	ledger := NewDedupLedger(cleanRoot)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot, executionRepo, ledger),
		executionRepo: executionRepo,
		scheduleRepo:  NewScheduleRepository(cleanRoot),
		userRepo:      NewUserRepository(cleanRoot),
		ledger:        ledger,
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return p.scheduleRepo
}

func (p *Persistence) UserRepository() persistence.UserRepository {
	return p.userRepo
}

func (p *Persistence) DedupLedger() persistence.DedupLedger {
	return p.ledger
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
