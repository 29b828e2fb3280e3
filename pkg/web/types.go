// Package web provides the HTTP request and response types for the workflow
// API.
package web

import (
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/validation"
)

// UserHeader carries the caller identity. Every workflow route requires it;
// authentication itself happens upstream of this service.
const UserHeader = "X-User-ID"

// CreateWorkflowRequest is the body for creating a new workflow. Triggers and
// actions are part of the definition, unlike sharing which has its own
// endpoint semantics through update.
type CreateWorkflowRequest struct {
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description"`
	Kind        models.WorkflowKind `json:"kind"        validate:"required,oneof=personal cross_user"`
	Triggers    []*models.Trigger   `json:"triggers"    validate:"required,min=1"`
	Actions     []*models.Action    `json:"actions"     validate:"required,min=1"`
	SharedWith  []string            `json:"shared_with,omitempty"`
	EditorIDs   []string            `json:"editor_ids,omitempty"`
	IsPublic    bool                `json:"is_public"`
}

// UpdateWorkflowRequest supports partial updates. Nil fields keep the stored
// value; triggers and actions replace the whole list when present.
type UpdateWorkflowRequest struct {
	Name        *string              `json:"name,omitempty" validate:"omitempty,min=3"`
	Description *string              `json:"description,omitempty"`
	Kind        *models.WorkflowKind `json:"kind,omitempty" validate:"omitempty,oneof=personal cross_user"`
	Triggers    []*models.Trigger    `json:"triggers,omitempty"`
	Actions     []*models.Action     `json:"actions,omitempty"`
	SharedWith  []string             `json:"shared_with,omitempty"`
	EditorIDs   []string             `json:"editor_ids,omitempty"`
	IsPublic    *bool                `json:"is_public,omitempty"`
}

// SignInRequest provisions or refreshes a user. Omitting the id creates a
// fresh user; a known id updates the profile fields.
type SignInRequest struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email,omitempty"         validate:"omitempty,email"`
	DisplayName  string `json:"display_name,omitempty"`
	ChatIdentity string `json:"chat_identity,omitempty"`
}

// ExecuteWorkflowRequest is the body for a manual run. The payload is seeded
// into the execution's variable context.
type ExecuteWorkflowRequest struct {
	Payload map[string]string `json:"payload,omitempty"`
}

// ValidateResponse reports the static check results for a stored workflow.
type ValidateResponse struct {
	Valid  bool               `json:"valid"`
	Issues []validation.Issue `json:"issues"`
}

func (r *UpdateWorkflowRequest) applyTo(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.Kind != nil {
		workflow.Kind = *r.Kind
	}

	if r.Triggers != nil {
		workflow.Triggers = r.Triggers
	}

	if r.Actions != nil {
		workflow.Actions = r.Actions
	}

	if r.SharedWith != nil {
		workflow.SharedWith = r.SharedWith
	}

	if r.EditorIDs != nil {
		workflow.EditorIDs = r.EditorIDs
	}

	if r.IsPublic != nil {
		workflow.IsPublic = *r.IsPublic
	}
}
