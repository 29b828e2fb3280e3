package models

import "time"

// WorkflowUser is an identity known to the engine. Users are created on first
// sign-in or on the first inbound message from an unknown chat identity.
// The ID is immutable; profile fields may change.
type WorkflowUser struct {
	ID           string    `json:"id"            validate:"required"`
	Email        string    `json:"email"         validate:"omitempty,email"`
	DisplayName  string    `json:"display_name"`
	ChatIdentity string    `json:"chat_identity,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
