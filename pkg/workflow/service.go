package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/routinely/routinely/pkg/capability"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/validation"
)

// Service is the permission-gated entry point for workflow definitions.
// Every mutation validates first and checks the caller's capability before
// touching the store, so a denied call leaves the store unchanged.
type Service struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	validator   *validation.Validator
}

func NewService(logger *slog.Logger, store persistence.Persistence) *Service {
	return &Service{
		logger:      logger.With("module", "workflow-service"),
		persistence: store,
		validator:   validation.New(),
	}
}

// Validate runs the static checks without saving anything.
func (s *Service) Validate(workflow *models.Workflow) []validation.Issue {
	return s.validator.Validate(workflow)
}

// Create validates and stores a new workflow owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, workflow *models.Workflow) (*models.Workflow, error) {
	workflow.OwnerID = ownerID

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	for _, trg := range workflow.Triggers {
		trg.WorkflowID = workflow.ID
	}

	issues := s.validator.Validate(workflow)
	if !validation.IsValid(issues) {
		return nil, &ValidationError{Issues: issues}
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	if err := s.syncSchedules(ctx, workflow); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "owner_id", ownerID)

	return workflow, nil
}

// Get returns the workflow if the caller may view it.
func (s *Service) Get(ctx context.Context, callerID, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !capability.HasCapability(callerID, workflow, capability.View) {
		s.logger.WarnContext(ctx, "View denied", "workflow_id", workflowID, "user_id", callerID)

		return nil, &PermissionError{UserID: callerID, WorkflowID: workflowID, Operation: "view"}
	}

	return workflow, nil
}

// List returns the caller's own workflows followed by the ones shared with
// them.
func (s *Service) List(ctx context.Context, callerID string) ([]*models.Workflow, error) {
	owned, err := s.persistence.WorkflowRepository().ListByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}

	shared, err := s.persistence.WorkflowRepository().ListSharedWith(ctx, callerID)
	if err != nil {
		return nil, err
	}

	return append(owned, shared...), nil
}

// Update replaces the workflow definition if the caller holds the modify
// grant. Ownership and creation time are immutable.
func (s *Service) Update(ctx context.Context, callerID string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := s.persistence.WorkflowRepository().GetByID(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}

	if !capability.HasCapability(callerID, existing, capability.Edit) {
		s.logger.WarnContext(ctx, "Update denied", "workflow_id", workflow.ID, "user_id", callerID)

		return nil, &PermissionError{UserID: callerID, WorkflowID: workflow.ID, Operation: "edit"}
	}

	workflow.OwnerID = existing.OwnerID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	for _, trg := range workflow.Triggers {
		trg.WorkflowID = workflow.ID
	}

	issues := s.validator.Validate(workflow)
	if !validation.IsValid(issues) {
		return nil, &ValidationError{Issues: issues}
	}

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	if err := s.syncSchedules(ctx, workflow); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow updated", "workflow_id", workflow.ID, "user_id", callerID)

	return workflow, nil
}

// Delete removes the workflow. Only the owner may delete; the repository
// cascades to execution history and dedup claims.
func (s *Service) Delete(ctx context.Context, callerID, workflowID string) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if !capability.HasCapability(callerID, workflow, capability.Delete) {
		s.logger.WarnContext(ctx, "Delete denied", "workflow_id", workflowID, "user_id", callerID)

		return &PermissionError{UserID: callerID, WorkflowID: workflowID, Operation: "delete"}
	}

	if err := s.persistence.ScheduleRepository().DeleteByWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove schedules: %w", err)
	}

	if err := s.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID, "user_id", callerID)

	return nil
}

// History returns the newest-first execution records if the caller may view
// the workflow.
func (s *Service) History(ctx context.Context, callerID, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !capability.HasCapability(callerID, workflow, capability.View) {
		return nil, &PermissionError{UserID: callerID, WorkflowID: workflowID, Operation: "view"}
	}

	return s.persistence.ExecutionRepository().History(ctx, workflowID, limit)
}

// syncSchedules rebuilds the schedule rows for the workflow's schedule
// triggers. Fresh rows compute their first due time from now, so a rebuild
// never refires a past due time.
func (s *Service) syncSchedules(ctx context.Context, workflow *models.Workflow) error {
	if err := s.persistence.ScheduleRepository().DeleteByWorkflow(ctx, workflow.ID); err != nil {
		return fmt.Errorf("failed to clear schedules: %w", err)
	}

	for _, trg := range workflow.Triggers {
		if trg.Type != models.TriggerTypeSchedule || trg.Schedule == nil {
			continue
		}

		schedule, err := models.NewSchedule(uuid.New().String(), workflow.ID, trg.ID, trg.Schedule.CronExpression)
		if err != nil {
			return fmt.Errorf("failed to build schedule for trigger %s: %w", trg.ID, err)
		}

		if err := s.persistence.ScheduleRepository().Save(ctx, schedule); err != nil {
			return fmt.Errorf("failed to save schedule for trigger %s: %w", trg.ID, err)
		}
	}

	return nil
}
