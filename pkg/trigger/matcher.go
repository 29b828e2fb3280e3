// Package trigger contains the pure trigger matcher and the polling manager
// that turns external events into workflow executions.
package trigger

import (
	"strings"

	"github.com/routinely/routinely/pkg/models"
)

// TriggerTypeForSource maps an event source to the trigger kind that reacts
// to it. Chat and email both feed message triggers.
func TriggerTypeForSource(source models.SourceType) models.TriggerType {
	switch source {
	case models.SourceTypeChat, models.SourceTypeEmail:
		return models.TriggerTypeMessage
	case models.SourceTypeLocation:
		return models.TriggerTypeGeofence
	case models.SourceTypeSchedule:
		return models.TriggerTypeSchedule
	case models.SourceTypeManual:
		return models.TriggerTypeManual
	default:
		return ""
	}
}

// Matches reports whether the trigger reacts to the event. It is a pure
// predicate: no side effects, no dedup, no permission checks.
func Matches(trigger *models.Trigger, event *models.RawEvent) bool {
	if trigger.Type != TriggerTypeForSource(event.Source) {
		return false
	}

	switch trigger.Type {
	case models.TriggerTypeMessage:
		return matchesMessage(trigger.Message, event)
	case models.TriggerTypeGeofence:
		return matchesGeofence(trigger.Geofence, event)
	case models.TriggerTypeSchedule, models.TriggerTypeManual:
		// Fired by the schedule poller or an explicit caller, so reaching
		// here already means a match.
		return true
	default:
		return false
	}
}

// matchesMessage applies the optional message filters. An absent filter
// matches everything; this broad matching is intentional.
func matchesMessage(cfg *models.MessageTriggerConfig, event *models.RawEvent) bool {
	if cfg == nil {
		return false
	}

	if cfg.SenderFilter != "" && !strings.Contains(event.Sender, cfg.SenderFilter) {
		return false
	}

	if cfg.KeywordFilter != "" {
		keyword := strings.ToLower(cfg.KeywordFilter)
		inText := strings.Contains(strings.ToLower(event.Text), keyword)
		inSubject := strings.Contains(strings.ToLower(event.Subject), keyword)

		if !inText && !inSubject {
			return false
		}
	}

	if cfg.CommandPrefix != "" && !strings.HasPrefix(event.Text, cfg.CommandPrefix) {
		return false
	}

	return true
}

func matchesGeofence(cfg *models.GeofenceTriggerConfig, event *models.RawEvent) bool {
	if cfg == nil {
		return false
	}

	if event.Transition != cfg.Transition {
		return false
	}

	if cfg.Transition == models.GeofenceDwell && event.DwellElapsed < cfg.DwellDuration {
		return false
	}

	return true
}
