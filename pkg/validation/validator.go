// Package validation statically checks workflows before save and execution.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/template"
)

// Severity grades a validation issue. Only SeverityError blocks save/execute.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one structured validation finding. Validation never returns an
// opaque error for a malformed workflow; it returns a list of these.
type Issue struct {
	Location string   `json:"location"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Validator checks workflow well-formedness: variant payloads, placeholder
// references, sharing constraints for personal workflows.
type Validator struct {
	fields *validator.Validate
}

func New() *Validator {
	return &Validator{fields: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns every issue found. A valid workflow yields an empty list,
// and re-validating it yields an identical empty list.
func (v *Validator) Validate(workflow *models.Workflow) []Issue {
	issues := []Issue{}

	if workflow == nil {
		return append(issues, Issue{Location: "workflow", Message: "workflow is nil", Severity: SeverityError})
	}

	if err := v.fields.Struct(workflow); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldError := range fieldErrors {
				issues = append(issues, Issue{
					Location: fieldError.Namespace(),
					Message:  fmt.Sprintf("failed %q constraint", fieldError.Tag()),
					Severity: SeverityError,
				})
			}
		} else {
			issues = append(issues, Issue{Location: "workflow", Message: err.Error(), Severity: SeverityError})
		}
	}

	if len(workflow.Triggers) == 0 {
		issues = append(issues, Issue{Location: "triggers", Message: "workflow needs at least one trigger", Severity: SeverityError})
	}

	if len(workflow.Actions) == 0 {
		issues = append(issues, Issue{Location: "actions", Message: "workflow needs at least one action", Severity: SeverityError})
	}

	issues = append(issues, v.validateTriggers(workflow)...)
	issues = append(issues, v.validateActions(workflow)...)

	return issues
}

// IsValid reports whether no error-severity issue is present.
func IsValid(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return false
		}
	}

	return true
}

func (v *Validator) validateTriggers(workflow *models.Workflow) []Issue {
	var issues []Issue

	for i, trigger := range workflow.Triggers {
		location := fmt.Sprintf("triggers[%d]", i)

		if err := trigger.Validate(); err != nil {
			issues = append(issues, Issue{Location: location, Message: err.Error(), Severity: SeverityError})

			continue
		}

		// Blank filters intentionally match every event of the source type.
		// Surface it so a forgotten filter is visible, without blocking.
		if trigger.Type == models.TriggerTypeMessage && trigger.Message != nil {
			m := trigger.Message
			if m.SenderFilter == "" && m.KeywordFilter == "" && m.CommandPrefix == "" {
				issues = append(issues, Issue{
					Location: location,
					Message:  "no filters set: trigger matches every message from this source",
					Severity: SeverityInfo,
				})
			}
		}
	}

	return issues
}

func (v *Validator) validateActions(workflow *models.Workflow) []Issue {
	var issues []Issue

	// Variables guaranteed before the first action: the seedable fields of
	// every declared trigger kind.
	available := make(map[string]bool)

	for _, trigger := range workflow.Triggers {
		for _, field := range models.SeedableFields(trigger.Type) {
			available[field] = true
		}
	}

	produced := make(map[string]string) // output variable -> first producing action

	for i, action := range workflow.Actions {
		location := fmt.Sprintf("actions[%d]", i)

		if err := action.Validate(); err != nil {
			issues = append(issues, Issue{Location: location, Message: err.Error(), Severity: SeverityError})

			continue
		}

		issues = append(issues, v.checkReferences(location, action, available)...)
		issues = append(issues, v.checkPersonalTarget(workflow, location, action)...)

		for _, output := range actionOutputs(action) {
			if firstProducer, dup := produced[output]; dup {
				issues = append(issues, Issue{
					Location: location,
					Message:  fmt.Sprintf("output variable %q already produced by %s; last write wins", output, firstProducer),
					Severity: SeverityWarning,
				})
			} else {
				produced[output] = action.ID
			}

			available[output] = true
		}
	}

	return issues
}

// checkReferences rejects placeholders that reference neither a seedable
// trigger field nor an output of a strictly earlier action.
func (v *Validator) checkReferences(location string, action *models.Action, available map[string]bool) []Issue {
	var issues []Issue

	for _, param := range actionTemplates(action) {
		for _, name := range template.Placeholders(param) {
			if !available[name] {
				issues = append(issues, Issue{
					Location: location,
					Message:  fmt.Sprintf("placeholder {{%s}} references a variable no earlier action or trigger provides", name),
					Severity: SeverityError,
				})
			}
		}
	}

	return issues
}

func (v *Validator) checkPersonalTarget(workflow *models.Workflow, location string, action *models.Action) []Issue {
	if workflow.Kind != models.WorkflowKindPersonal {
		return nil
	}

	var issues []Issue

	for _, a := range flatten(action) {
		if a.Type != models.ActionTypeSendMessage || a.SendMessage == nil {
			continue
		}

		target := a.SendMessage.TargetUserID
		if target != "" && target != workflow.OwnerID {
			issues = append(issues, Issue{
				Location: location,
				Message:  fmt.Sprintf("personal workflow cannot target user %q", target),
				Severity: SeverityError,
			})
		}
	}

	return issues
}

// actionTemplates collects the string parameters of an action (and its
// conditional branches) that undergo placeholder resolution.
func actionTemplates(action *models.Action) []string {
	var params []string

	for _, a := range flatten(action) {
		switch a.Type {
		case models.ActionTypeSendMessage:
			if a.SendMessage != nil {
				params = append(params, a.SendMessage.Text)
			}
		case models.ActionTypeReply:
			if a.Reply != nil {
				params = append(params, a.Reply.Text)
			}
		case models.ActionTypeAITransform:
			if a.AITransform != nil {
				params = append(params, a.AITransform.Input)
				for _, value := range a.AITransform.Params {
					params = append(params, value)
				}
			}
		case models.ActionTypeConditional:
			if a.Conditional != nil {
				params = append(params, a.Conditional.Expression)
			}
		case models.ActionTypeDelay:
		}
	}

	return params
}

// actionOutputs collects the output variables an action may produce,
// including its conditional branches.
func actionOutputs(action *models.Action) []string {
	var outputs []string

	for _, a := range flatten(action) {
		if a.OutputVariable != "" {
			outputs = append(outputs, a.OutputVariable)
		}
	}

	return outputs
}

// flatten returns the action plus any conditional sub-actions, depth-first.
func flatten(action *models.Action) []*models.Action {
	actions := []*models.Action{action}

	if action.Type == models.ActionTypeConditional && action.Conditional != nil {
		if action.Conditional.Then != nil {
			actions = append(actions, flatten(action.Conditional.Then)...)
		}

		if action.Conditional.Else != nil {
			actions = append(actions, flatten(action.Conditional.Else)...)
		}
	}

	return actions
}
