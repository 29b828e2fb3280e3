package models

import (
	"errors"
	"fmt"
	"time"
)

// ActionType discriminates the action variants.
type ActionType string

const (
	ActionTypeSendMessage ActionType = "send_message"
	ActionTypeReply       ActionType = "reply"
	ActionTypeAITransform ActionType = "ai_transform"
	ActionTypeDelay       ActionType = "delay"
	ActionTypeConditional ActionType = "conditional"
)

// KnownActionTypes lists every action variant for exhaustiveness checks.
var KnownActionTypes = []ActionType{
	ActionTypeSendMessage,
	ActionTypeReply,
	ActionTypeAITransform,
	ActionTypeDelay,
	ActionTypeConditional,
}

// AITransformMode selects the AI-derived transformation applied to an input.
type AITransformMode string

const (
	AIModeAnalyze    AITransformMode = "analyze"
	AIModeSummarize  AITransformMode = "summarize"
	AIModeTranslate  AITransformMode = "translate"
	AIModeSmartReply AITransformMode = "smart_reply"
)

type SendMessageConfig struct {
	// TargetUserID receives the message. Empty means the triggering user.
	TargetUserID string `json:"target_user_id,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Text         string `json:"text" validate:"required"`
}

type ReplyConfig struct {
	Text string `json:"text" validate:"required"`
}

type AITransformConfig struct {
	Mode   AITransformMode   `json:"mode"  validate:"required,oneof=analyze summarize translate smart_reply"`
	Input  string            `json:"input" validate:"required"`
	Params map[string]string `json:"params,omitempty"`
}

type DelayConfig struct {
	Duration time.Duration `json:"duration" validate:"gt=0"`
}

// ConditionalConfig selects between a then and an optional else sub-action
// based on an expression evaluated against the variable context.
type ConditionalConfig struct {
	Expression string  `json:"expression" validate:"required"`
	Then       *Action `json:"then"       validate:"required"`
	Else       *Action `json:"else,omitempty"`
}

// Action is one step of a workflow's chain. Position defines execution order.
// OutputVariable, when set, names the context variable the action's output is
// merged into (last-write-wins). HaltOnFailure overrides the kind's default
// halting policy when non-nil.
type Action struct {
	ID             string     `json:"id"   validate:"required"`
	Name           string     `json:"name" validate:"required"`
	Position       int        `json:"position"`
	Type           ActionType `json:"type" validate:"required"`
	OutputVariable string     `json:"output_variable,omitempty"`
	HaltOnFailure  *bool      `json:"halt_on_failure,omitempty"`
	Enabled        bool       `json:"enabled"`

	SendMessage *SendMessageConfig `json:"send_message,omitempty"`
	Reply       *ReplyConfig       `json:"reply,omitempty"`
	AITransform *AITransformConfig `json:"ai_transform,omitempty"`
	Delay       *DelayConfig       `json:"delay,omitempty"`
	Conditional *ConditionalConfig `json:"conditional,omitempty"`
}

var ErrInvalidAction = errors.New("invalid action configuration")

// HaltsOnFailure resolves the effective halting policy. Communication and AI
// failures are retryable and later steps rarely depend on them, so those kinds
// continue. Delay and conditional failures leave the chain's control flow
// undefined, so those halt.
func (a *Action) HaltsOnFailure() bool {
	if a.HaltOnFailure != nil {
		return *a.HaltOnFailure
	}

	switch a.Type {
	case ActionTypeDelay, ActionTypeConditional:
		return true
	case ActionTypeSendMessage, ActionTypeReply, ActionTypeAITransform:
		return false
	default:
		return true
	}
}

// Validate checks the variant payload matches the declared type.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionTypeSendMessage:
		if a.SendMessage == nil {
			return fmt.Errorf("%w: action %s has no send_message config", ErrInvalidAction, a.ID)
		}
	case ActionTypeReply:
		if a.Reply == nil {
			return fmt.Errorf("%w: action %s has no reply config", ErrInvalidAction, a.ID)
		}
	case ActionTypeAITransform:
		if a.AITransform == nil {
			return fmt.Errorf("%w: action %s has no ai_transform config", ErrInvalidAction, a.ID)
		}
	case ActionTypeDelay:
		if a.Delay == nil || a.Delay.Duration <= 0 {
			return fmt.Errorf("%w: action %s needs a positive delay duration", ErrInvalidAction, a.ID)
		}
	case ActionTypeConditional:
		if a.Conditional == nil || a.Conditional.Then == nil {
			return fmt.Errorf("%w: action %s needs an expression and a then branch", ErrInvalidAction, a.ID)
		}

		if err := a.Conditional.Then.Validate(); err != nil {
			return err
		}

		if a.Conditional.Else != nil {
			if err := a.Conditional.Else.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}

	return nil
}
