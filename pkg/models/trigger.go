package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerType discriminates the trigger variants.
type TriggerType string

const (
	TriggerTypeMessage  TriggerType = "message"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeManual   TriggerType = "manual"
	TriggerTypeGeofence TriggerType = "geofence"
)

// KnownTriggerTypes lists every trigger variant. Dispatch tables are checked
// against this list in tests so a new variant cannot be added silently.
var KnownTriggerTypes = []TriggerType{
	TriggerTypeMessage,
	TriggerTypeSchedule,
	TriggerTypeManual,
	TriggerTypeGeofence,
}

// GeofenceTransition is the location event a geofence trigger reacts to.
type GeofenceTransition string

const (
	GeofenceEnter GeofenceTransition = "enter"
	GeofenceExit  GeofenceTransition = "exit"
	GeofenceDwell GeofenceTransition = "dwell"
)

// MessageTriggerConfig filters inbound platform messages. Every filter is
// optional: an absent filter matches all messages of the source. This broad
// matching is intentional, not an omitted validation.
type MessageTriggerConfig struct {
	Platform      string `json:"platform,omitempty"`
	SenderFilter  string `json:"sender_filter,omitempty"`
	KeywordFilter string `json:"keyword_filter,omitempty"`
	CommandPrefix string `json:"command_prefix,omitempty"`
}

// ScheduleTriggerConfig fires on a 5-field cron expression.
type ScheduleTriggerConfig struct {
	CronExpression string `json:"cron_expression" validate:"required"`
}

// GeofenceTriggerConfig fires on tagged location transitions.
type GeofenceTriggerConfig struct {
	Latitude      float64            `json:"latitude"      validate:"min=-90,max=90"`
	Longitude     float64            `json:"longitude"     validate:"min=-180,max=180"`
	RadiusMeters  float64            `json:"radius_meters" validate:"gt=0"`
	Transition    GeofenceTransition `json:"transition"    validate:"required,oneof=enter exit dwell"`
	DwellDuration time.Duration      `json:"dwell_duration,omitempty"`
}

// Trigger is a tagged variant: exactly the config matching Type is set.
// SourceUserID identifies the user on whose behalf external events are
// fetched for this trigger.
type Trigger struct {
	ID           string      `json:"id"             validate:"required"`
	WorkflowID   string      `json:"workflow_id"`
	SourceUserID string      `json:"source_user_id" validate:"required"`
	Type         TriggerType `json:"type"           validate:"required"`

	Message  *MessageTriggerConfig  `json:"message,omitempty"`
	Schedule *ScheduleTriggerConfig `json:"schedule,omitempty"`
	Geofence *GeofenceTriggerConfig `json:"geofence,omitempty"`
}

var ErrInvalidTrigger = errors.New("invalid trigger configuration")

// Validate checks the variant payload matches the declared type.
func (t *Trigger) Validate() error {
	switch t.Type {
	case TriggerTypeMessage:
		if t.Message == nil {
			return fmt.Errorf("%w: message trigger %s has no message config", ErrInvalidTrigger, t.ID)
		}
	case TriggerTypeSchedule:
		if t.Schedule == nil {
			return fmt.Errorf("%w: schedule trigger %s has no schedule config", ErrInvalidTrigger, t.ID)
		}

		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(t.Schedule.CronExpression); err != nil {
			return fmt.Errorf("%w: trigger %s: %w", ErrInvalidTrigger, t.ID, err)
		}
	case TriggerTypeManual:
		// No payload to check.
	case TriggerTypeGeofence:
		if t.Geofence == nil {
			return fmt.Errorf("%w: geofence trigger %s has no geofence config", ErrInvalidTrigger, t.ID)
		}

		if t.Geofence.RadiusMeters <= 0 {
			return fmt.Errorf("%w: trigger %s: radius must be positive", ErrInvalidTrigger, t.ID)
		}

		if t.Geofence.Transition == GeofenceDwell && t.Geofence.DwellDuration <= 0 {
			return fmt.Errorf("%w: trigger %s: dwell requires a positive dwell duration", ErrInvalidTrigger, t.ID)
		}
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidTrigger, t.Type)
	}

	return nil
}
