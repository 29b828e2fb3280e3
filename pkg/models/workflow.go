// Package models defines the core domain models for the workflow automation engine.
package models

import "time"

// WorkflowKind distinguishes workflows that only act on behalf of their owner
// from workflows whose actions may target other users.
type WorkflowKind string

const (
	WorkflowKindPersonal  WorkflowKind = "personal"
	WorkflowKindCrossUser WorkflowKind = "cross_user"
)

// Workflow ties a set of triggers to an ordered action chain. Actions are
// positional; their slice order is the execution order. Sharing is explicit:
// SharedWith grants view and execute, EditorIDs additionally grants edit.
// The owner always holds every capability.
type Workflow struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"        validate:"required,min=3"`
	Description string       `json:"description"`
	OwnerID     string       `json:"owner_id"    validate:"required"`
	Kind        WorkflowKind `json:"kind"        validate:"required,oneof=personal cross_user"`
	Triggers    []*Trigger   `json:"triggers"`
	Actions     []*Action    `json:"actions"`
	SharedWith  []string     `json:"shared_with,omitempty"`
	EditorIDs   []string     `json:"editor_ids,omitempty"`
	IsPublic    bool         `json:"is_public"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsSharedWith reports whether the given user appears in the share list.
func (w *Workflow) IsSharedWith(userID string) bool {
	for _, id := range w.SharedWith {
		if id == userID {
			return true
		}
	}

	return false
}

// IsEditor reports whether the given user holds an explicit modify grant.
// Editors are a subset of SharedWith; a stray editor id that is not shared
// does not grant anything.
func (w *Workflow) IsEditor(userID string) bool {
	if !w.IsSharedWith(userID) {
		return false
	}

	for _, id := range w.EditorIDs {
		if id == userID {
			return true
		}
	}

	return false
}

// TriggerByID returns the trigger with the given id, if present.
func (w *Workflow) TriggerByID(id string) (*Trigger, bool) {
	for _, t := range w.Triggers {
		if t.ID == id {
			return t, true
		}
	}

	return nil, false
}
