// Package workflow contains the execution engine and the permission-gated
// workflow service.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routinely/routinely/pkg/capability"
	"github.com/routinely/routinely/pkg/eventbus"
	"github.com/routinely/routinely/pkg/events"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/otelhelper"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/registry"
)

// Engine runs one workflow execution per call. Each execution gets its own
// context and goroutine; the engine itself holds no per-execution state.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	handlers    *registry.Registry
	bus         eventbus.EventPublisher
	tracer      trace.Tracer
}

func NewEngine(logger *slog.Logger, store persistence.Persistence, handlers *registry.Registry, bus eventbus.EventPublisher) *Engine {
	return &Engine{
		logger:      logger.With("module", "execution-engine"),
		persistence: store,
		handlers:    handlers,
		bus:         bus,
	}
}

// WithTracer enables span creation around executions and actions.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// Dispatch adapts Execute to the trigger manager's dispatch signature.
// Failures are logged; the execution record carries the details.
func (e *Engine) Dispatch(ctx context.Context, workflowID string, trg *models.Trigger, event *models.RawEvent) {
	if _, err := e.Execute(ctx, workflowID, trg, event); err != nil {
		e.logger.ErrorContext(ctx, "Dispatched execution failed",
			"workflow_id", workflowID,
			"trigger_id", trg.ID,
			"error", err)
	}
}

// Execute runs the workflow's action chain for a matched trigger and event.
// The returned record is finalized and already persisted. A permission
// denial returns ErrPermissionDenied without touching the store.
func (e *Engine) Execute(ctx context.Context, workflowID string, trg *models.Trigger, event *models.RawEvent) (*models.ExecutionRecord, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	triggerUserID := trg.SourceUserID
	if triggerUserID == "" {
		triggerUserID = workflow.OwnerID
	}

	if !capability.HasCapability(triggerUserID, workflow, capability.Execute) {
		// Audit trail only; denied attempts never produce records.
		e.logger.WarnContext(ctx, "Execution denied",
			"workflow_id", workflowID,
			"user_id", triggerUserID,
			"trigger_id", trg.ID)

		return nil, &PermissionError{UserID: triggerUserID, WorkflowID: workflowID, Operation: "execute"}
	}

	return e.run(ctx, workflow, trg, event, triggerUserID)
}

// ExecuteManual runs the workflow on behalf of an explicit caller, bypassing
// the dedup ledger. The payload is merged into the seeded variables.
func (e *Engine) ExecuteManual(ctx context.Context, workflowID, callerID string, payload map[string]string) (*models.ExecutionRecord, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !capability.HasCapability(callerID, workflow, capability.Execute) {
		e.logger.WarnContext(ctx, "Manual execution denied",
			"workflow_id", workflowID,
			"user_id", callerID)

		return nil, &PermissionError{UserID: callerID, WorkflowID: workflowID, Operation: "execute"}
	}

	trg := manualTrigger(workflow, callerID)

	event := &models.RawEvent{
		ID:         uuid.New().String(),
		Source:     models.SourceTypeManual,
		Text:       payload[models.VarTriggerContent],
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	return e.run(ctx, workflow, trg, event, callerID)
}

// manualTrigger returns the workflow's manual trigger, or a synthetic one so
// any executable workflow can also be run by hand.
func manualTrigger(workflow *models.Workflow, callerID string) *models.Trigger {
	for _, trg := range workflow.Triggers {
		if trg.Type == models.TriggerTypeManual {
			return trg
		}
	}

	return &models.Trigger{
		ID:           "manual-" + workflow.ID,
		WorkflowID:   workflow.ID,
		SourceUserID: callerID,
		Type:         models.TriggerTypeManual,
	}
}

func (e *Engine) run(ctx context.Context, workflow *models.Workflow, trg *models.Trigger, event *models.RawEvent, triggerUserID string) (*models.ExecutionRecord, error) {
	executionID := "exec-" + uuid.New().String()[:8]

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", executionID,
		"trigger_type", trg.Type,
		"trigger_user_id", triggerUserID)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
			attribute.String(otelhelper.ExecutionIDKey, executionID),
			attribute.String(otelhelper.TriggerTypeKey, string(trg.Type)),
			attribute.String(otelhelper.UserIDKey, triggerUserID),
		)
		defer span.End()
	}

	logger.InfoContext(ctx, "Starting execution")

	record := &models.ExecutionRecord{
		ID:            executionID,
		WorkflowID:    workflow.ID,
		TriggerUserID: triggerUserID,
		TriggerType:   trg.Type,
		StartedAt:     time.Now().UTC(),
	}

	executionCtx := models.NewExecutionContext(executionID, workflow.ID, triggerUserID)
	for name, value := range models.SeedVariables(trg, event) {
		executionCtx.Set(name, value)
	}

	e.publish(ctx, workflow.ID, events.WorkflowTriggered{
		BaseEvent:     events.NewBaseEvent(events.WorkflowTriggeredEvent, workflow.ID),
		TriggerID:     trg.ID,
		TriggerType:   trg.Type,
		TriggerUserID: triggerUserID,
		EventKey:      event.EventKey(workflow.ID),
	})

	e.publish(ctx, workflow.ID, events.WorkflowExecutionStarted{
		BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionStartedEvent, workflow.ID),
		ExecutionID:   executionID,
		WorkflowName:  workflow.Name,
		TriggerType:   string(trg.Type),
		TriggerUserID: triggerUserID,
		Variables:     executionCtx.Variables,
	})

	cancelled := e.runActions(ctx, logger, workflow, executionCtx, record)

	e.finalize(ctx, logger, record, cancelled)

	if cancelled {
		return record, ctx.Err()
	}

	return record, nil
}

// runActions walks the chain in positional order. It reports whether the run
// was cut short by context cancellation.
func (e *Engine) runActions(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, executionCtx *models.ExecutionContext, record *models.ExecutionRecord) bool {
	halted := false

	for index, action := range workflow.Actions {
		if halted {
			record.ActionOutcomes = append(record.ActionOutcomes, skippedOutcome(action))

			continue
		}

		// Cancellation is checked between actions; an in-flight action is
		// never interrupted from here.
		if ctx.Err() != nil {
			for _, remaining := range workflow.Actions[index:] {
				record.ActionOutcomes = append(record.ActionOutcomes, skippedOutcome(remaining))
			}

			return true
		}

		if !action.Enabled {
			record.ActionOutcomes = append(record.ActionOutcomes, skippedOutcome(action))

			continue
		}

		outcome := e.runAction(ctx, logger, action, executionCtx)
		record.ActionOutcomes = append(record.ActionOutcomes, outcome)

		// A cancelled context also surfaces as the current action's failure,
		// e.g. an interrupted delay. That run is cancelled, not halted.
		if ctx.Err() != nil {
			for _, remaining := range workflow.Actions[index+1:] {
				record.ActionOutcomes = append(record.ActionOutcomes, skippedOutcome(remaining))
			}

			return true
		}

		if outcome.Status == models.ActionStatusFailed && action.HaltsOnFailure() {
			record.ActionOutcomes[len(record.ActionOutcomes)-1].HaltedHere = true
			halted = true
		}
	}

	return false
}

func (e *Engine) runAction(ctx context.Context, logger *slog.Logger, action *models.Action, executionCtx *models.ExecutionContext) models.ActionOutcome {
	logger = logger.With("action_id", action.ID, "action_type", action.Type)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
			attribute.String(otelhelper.ActionIDKey, action.ID),
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		)
		defer span.End()
	}

	outcome := models.ActionOutcome{
		ActionID:  action.ID,
		Name:      action.Name,
		Type:      action.Type,
		StartedAt: time.Now().UTC(),
	}

	handler, err := e.handlers.CreateHandler(action)
	if err != nil {
		outcome.Status = models.ActionStatusFailed
		outcome.Error = err.Error()
		outcome.Duration = time.Since(outcome.StartedAt)

		logger.ErrorContext(ctx, "Failed to build action handler", "error", err)

		return outcome
	}

	output, warnings, err := handler.Execute(ctx, executionCtx, logger)
	outcome.Duration = time.Since(outcome.StartedAt)
	outcome.Warnings = warnings

	if err != nil {
		outcome.Status = models.ActionStatusFailed
		outcome.Error = err.Error()

		logger.ErrorContext(ctx, "Action failed", "error", err)

		return outcome
	}

	outcome.Status = models.ActionStatusSucceeded
	outcome.Output = output

	if action.OutputVariable != "" {
		executionCtx.Set(action.OutputVariable, output)
	}

	logger.InfoContext(ctx, "Action completed", "duration", outcome.Duration)

	return outcome
}

// finalize freezes the record, persists it and publishes the terminal event.
func (e *Engine) finalize(ctx context.Context, logger *slog.Logger, record *models.ExecutionRecord, cancelled bool) {
	record.FinishedAt = time.Now().UTC()
	record.Success = !cancelled

	executed := 0

	var failedActionID string

	for _, outcome := range record.ActionOutcomes {
		if outcome.Status != models.ActionStatusSkipped {
			executed++
		}

		if outcome.Status == models.ActionStatusFailed {
			if outcome.HaltedHere {
				record.Success = false
			}

			if failedActionID == "" {
				failedActionID = outcome.ActionID
			}
		}
	}

	switch {
	case cancelled:
		record.Message = "execution cancelled"
	case record.Success:
		record.Message = fmt.Sprintf("executed %d actions", executed)
	default:
		record.Message = fmt.Sprintf("halted at action %s", failedActionID)
	}

	// The record is append-only; persistence failures lose history, not
	// correctness, so they are logged and execution still returns the record.
	appendCtx := ctx
	if appendCtx.Err() != nil {
		appendCtx = context.WithoutCancel(ctx)
	}

	if err := e.persistence.ExecutionRepository().Append(appendCtx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution record", "error", err)
	}

	duration := record.FinishedAt.Sub(record.StartedAt).Milliseconds()

	switch {
	case cancelled:
		e.publish(appendCtx, record.WorkflowID, events.WorkflowExecutionCancelled{
			BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionCancelledEvent, record.WorkflowID),
			ExecutionID:     record.ID,
			DurationMs:      duration,
			ActionsExecuted: executed,
			Reason:          "context cancelled",
		})
	case record.Success:
		e.publish(appendCtx, record.WorkflowID, events.WorkflowExecutionCompleted{
			BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, record.WorkflowID),
			ExecutionID:     record.ID,
			DurationMs:      duration,
			ActionsExecuted: executed,
		})
	default:
		e.publish(appendCtx, record.WorkflowID, events.WorkflowExecutionFailed{
			BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionFailedEvent, record.WorkflowID),
			ExecutionID:     record.ID,
			DurationMs:      duration,
			ActionsExecuted: executed,
			FailedActionID:  failedActionID,
			Error:           record.Message,
		})
	}

	logger.InfoContext(ctx, "Execution finished",
		"success", record.Success,
		"actions_executed", executed,
		"duration_ms", duration)
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func skippedOutcome(action *models.Action) models.ActionOutcome {
	return models.ActionOutcome{
		ActionID:  action.ID,
		Name:      action.Name,
		Type:      action.Type,
		Status:    models.ActionStatusSkipped,
		StartedAt: time.Now().UTC(),
	}
}
