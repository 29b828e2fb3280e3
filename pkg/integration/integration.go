// Package integration declares the contracts external collaborators fulfil.
// Platform transports, mail providers, location feeds and AI inference all
// live behind these interfaces; the engine never talks to an external system
// directly.
package integration

import (
	"context"
	"errors"

	"github.com/routinely/routinely/pkg/models"
)

// ErrFetchFailed marks a transient source failure. The trigger manager logs
// it and ends the cycle; unfetched events are retried on the next poll.
var ErrFetchFailed = errors.New("failed to fetch candidate events")

// SourceConfig identifies one polling unit: a user's account on one source.
type SourceConfig struct {
	Source models.SourceType `json:"source"`
	// UserID is the workflow user whose external account is polled.
	UserID   string `json:"user_id"`
	Platform string `json:"platform,omitempty"`
}

// EventSource fetches candidate events from an external system. Fetches are
// bounded by limit; cursor is opaque to the caller and carries the source's
// position between cycles.
type EventSource interface {
	Source() models.SourceType
	FetchCandidates(ctx context.Context, cfg SourceConfig, cursor string, limit int) ([]*models.RawEvent, string, error)
}

// Messenger delivers outbound messages on a platform.
type Messenger interface {
	// Send delivers text to a user. An empty platform means the user's
	// default channel.
	Send(ctx context.Context, targetUserID, platform, text string) error
	// Reply posts text into the conversation the triggering message came
	// from.
	Reply(ctx context.Context, platform, chatID, text string) error
}

// AIClient applies an AI-derived transformation to an input.
type AIClient interface {
	Transform(ctx context.Context, mode models.AITransformMode, input string, params map[string]string) (string, error)
}
