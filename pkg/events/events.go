// Package events defines event types for workflow execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/routinely/routinely/pkg/models"
)

type EventType string

// Kafka topic for workflow execution events.
const Topic = "routinely.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent          EventType = "workflow.triggered"
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// WorkflowTriggered is emitted after an event matched a trigger and its dedup
// claim succeeded, before execution starts.
type WorkflowTriggered struct {
	BaseEvent

	TriggerID     string             `json:"trigger_id"`
	TriggerType   models.TriggerType `json:"trigger_type"`
	TriggerUserID string             `json:"trigger_user_id"`
	EventKey      string             `json:"event_key,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID   string            `json:"execution_id"`
	WorkflowName  string            `json:"workflow_name"`
	TriggerType   string            `json:"trigger_type"`
	TriggerUserID string            `json:"trigger_user_id"`
	Variables     map[string]string `json:"variables,omitempty"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	DurationMs      int64  `json:"duration_ms"`
	ActionsExecuted int    `json:"actions_executed"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	DurationMs      int64  `json:"duration_ms"`
	ActionsExecuted int    `json:"actions_executed"`
	FailedActionID  string `json:"failed_action_id,omitempty"`
	Error           string `json:"error"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	DurationMs      int64  `json:"duration_ms"`
	ActionsExecuted int    `json:"actions_executed"`
	Reason          string `json:"reason,omitempty"`
}

func (w WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}
