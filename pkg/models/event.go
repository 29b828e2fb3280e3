package models

import "time"

// SourceType names the external system a raw event came from.
type SourceType string

const (
	SourceTypeChat     SourceType = "chat"
	SourceTypeEmail    SourceType = "email"
	SourceTypeLocation SourceType = "location"
	SourceTypeSchedule SourceType = "schedule"
	SourceTypeManual   SourceType = "manual"
)

// RawEvent is a candidate event fetched from an external integration before
// matching. The engine never mutates it.
type RawEvent struct {
	ID         string     `json:"id"`
	Source     SourceType `json:"source"`
	ChatID     string     `json:"chat_id,omitempty"`
	Sender     string     `json:"sender,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Text       string     `json:"text,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`

	// Location events arrive already tagged with their transition.
	Transition   GeofenceTransition `json:"transition,omitempty"`
	Latitude     float64            `json:"latitude,omitempty"`
	Longitude    float64            `json:"longitude,omitempty"`
	DwellElapsed time.Duration      `json:"dwell_elapsed,omitempty"`

	Payload map[string]string `json:"payload,omitempty"`
}

// EventKey computes the stable deduplication key for this event against a
// workflow. Chat events include the chat id since message ids are only unique
// per conversation on some platforms.
func (e *RawEvent) EventKey(workflowID string) string {
	if e.ChatID != "" {
		return e.ID + ":" + e.ChatID + ":" + workflowID
	}

	return e.ID + ":" + workflowID
}
