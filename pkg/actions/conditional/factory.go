package conditional

import (
	"fmt"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

type Factory struct {
	handlers *registry.Registry
}

// NewFactory builds conditional handlers. The registry is needed to build the
// branch handlers inline.
func NewFactory(handlers *registry.Registry) *Factory {
	return &Factory{handlers: handlers}
}

func (*Factory) Type() models.ActionType {
	return models.ActionTypeConditional
}

func (f *Factory) Create(action *models.Action) (registry.Handler, error) {
	if action.Conditional == nil || action.Conditional.Then == nil {
		return nil, fmt.Errorf("%w: action %s needs an expression and a then branch", models.ErrInvalidAction, action.ID)
	}

	return NewAction(action.Conditional, f.handlers), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Boolean comparison evaluated after placeholder resolution, e.g. '{{count}} > 3'",
				"minLength":   1,
			},
			"then": map[string]any{
				"type":        "object",
				"description": "Action executed when the expression is true",
			},
			"else": map[string]any{
				"type":        "object",
				"description": "Optional action executed when the expression is false",
			},
		},
		"required": []string{"expression", "then"},
	}
}
