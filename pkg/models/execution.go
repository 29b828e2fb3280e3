package models

import "time"

// ExecutionContext carries the per-execution variable map threaded through an
// action chain. Variables are workflow-scoped per execution and never shared
// between concurrent runs.
type ExecutionContext struct {
	ID            string            `json:"id"`
	WorkflowID    string            `json:"workflow_id"`
	TriggerUserID string            `json:"trigger_user_id"`
	Variables     map[string]string `json:"variables"`
}

// NewExecutionContext creates an empty context for one run.
func NewExecutionContext(executionID, workflowID, triggerUserID string) *ExecutionContext {
	return &ExecutionContext{
		ID:            executionID,
		WorkflowID:    workflowID,
		TriggerUserID: triggerUserID,
		Variables:     make(map[string]string),
	}
}

// Set merges a variable, overwriting any prior value of the same name.
func (c *ExecutionContext) Set(name, value string) {
	c.Variables[name] = value
}

// Get looks up a variable.
func (c *ExecutionContext) Get(name string) (string, bool) {
	v, ok := c.Variables[name]

	return v, ok
}

// ActionStatus is the outcome of a single action within an execution.
type ActionStatus string

const (
	ActionStatusSucceeded ActionStatus = "succeeded"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// ActionOutcome records one action's result inside an execution record.
type ActionOutcome struct {
	ActionID   string        `json:"action_id"`
	Name       string        `json:"name"`
	Type       ActionType    `json:"type"`
	Status     ActionStatus  `json:"status"`
	Output     string        `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	HaltedHere bool          `json:"halted_here,omitempty"`
}

// ExecutionRecord is the audit trail of one workflow run. It is created when
// the run starts and is immutable once finalized.
type ExecutionRecord struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	TriggerUserID  string          `json:"trigger_user_id"`
	TriggerType    TriggerType     `json:"trigger_type"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	Success        bool            `json:"success"`
	ActionOutcomes []ActionOutcome `json:"action_outcomes"`
	Message        string          `json:"message"`
}

// DedupClaim marks one (event, workflow) pair as handled. Claims are written
// once, never updated, and evicted after a configurable age.
type DedupClaim struct {
	EventKey    string    `json:"event_key"`
	ProcessedAt time.Time `json:"processed_at"`
}
