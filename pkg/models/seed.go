package models

import (
	"strconv"
	"time"
)

// Canonical variable names seeded into the execution context before the first
// action runs. The validator and the execution engine share this mapping.
const (
	VarTriggerContent     = "trigger_content"
	VarEventID            = "event_id"
	VarMessageSender      = "message_sender"
	VarChatID             = "chat_id"
	VarPlatform           = "platform"
	VarEmailSubject       = "email_subject"
	VarFiredAt            = "fired_at"
	VarCronExpression     = "cron_expression"
	VarGeofenceTransition = "geofence_transition"
	VarLatitude           = "latitude"
	VarLongitude          = "longitude"
	VarDwellSeconds       = "dwell_seconds"
)

// SeedableFields returns the variable names guaranteed to exist after seeding
// for a trigger of the given kind. Manual triggers may carry arbitrary extra
// payload keys, but only these are guaranteed.
func SeedableFields(triggerType TriggerType) []string {
	switch triggerType {
	case TriggerTypeMessage:
		return []string{VarTriggerContent, VarEventID, VarMessageSender, VarChatID, VarPlatform, VarEmailSubject}
	case TriggerTypeSchedule:
		return []string{VarTriggerContent, VarEventID, VarFiredAt, VarCronExpression}
	case TriggerTypeManual:
		return []string{VarTriggerContent, VarEventID}
	case TriggerTypeGeofence:
		return []string{VarTriggerContent, VarEventID, VarGeofenceTransition, VarLatitude, VarLongitude, VarDwellSeconds}
	default:
		return nil
	}
}

// SeedVariables maps a raw event onto the trigger kind's variable set. Extra
// payload keys are merged last so a manual caller can pass anything through,
// without overriding the canonical names.
func SeedVariables(trigger *Trigger, event *RawEvent) map[string]string {
	vars := map[string]string{
		VarTriggerContent: event.Text,
		VarEventID:        event.ID,
	}

	switch trigger.Type {
	case TriggerTypeMessage:
		vars[VarMessageSender] = event.Sender
		vars[VarChatID] = event.ChatID
		vars[VarEmailSubject] = event.Subject

		platform := ""
		if trigger.Message != nil {
			platform = trigger.Message.Platform
		}

		vars[VarPlatform] = platform
	case TriggerTypeSchedule:
		vars[VarFiredAt] = event.OccurredAt.UTC().Format(time.RFC3339)
		if trigger.Schedule != nil {
			vars[VarCronExpression] = trigger.Schedule.CronExpression
		}
	case TriggerTypeGeofence:
		vars[VarGeofenceTransition] = string(event.Transition)
		vars[VarLatitude] = strconv.FormatFloat(event.Latitude, 'f', -1, 64)
		vars[VarLongitude] = strconv.FormatFloat(event.Longitude, 'f', -1, 64)
		vars[VarDwellSeconds] = strconv.FormatInt(int64(event.DwellElapsed/time.Second), 10)
	case TriggerTypeManual:
		// Only the canonical pair plus whatever the caller passed.
	}

	for key, value := range event.Payload {
		if _, exists := vars[key]; !exists {
			vars[key] = value
		}
	}

	return vars
}
