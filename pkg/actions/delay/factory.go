package delay

import (
	"fmt"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.ActionType {
	return models.ActionTypeDelay
}

func (f *Factory) Create(action *models.Action) (registry.Handler, error) {
	if action.Delay == nil || action.Delay.Duration <= 0 {
		return nil, fmt.Errorf("%w: action %s needs a positive delay duration", models.ErrInvalidAction, action.ID)
	}

	return NewAction(action.Delay), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":             "integer",
				"description":      "Wait duration in nanoseconds",
				"exclusiveMinimum": 0,
			},
		},
		"required": []string{"duration"},
	}
}
