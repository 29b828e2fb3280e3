package aitransform

import (
	"fmt"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

type Factory struct {
	client integration.AIClient
}

func NewFactory(client integration.AIClient) *Factory {
	return &Factory{client: client}
}

func (*Factory) Type() models.ActionType {
	return models.ActionTypeAITransform
}

func (f *Factory) Create(action *models.Action) (registry.Handler, error) {
	if action.AITransform == nil {
		return nil, fmt.Errorf("%w: action %s has no ai_transform config", models.ErrInvalidAction, action.ID)
	}

	return NewAction(action.AITransform, f.client), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode": map[string]any{
				"type":        "string",
				"description": "Transformation to apply",
				"enum":        []string{"analyze", "summarize", "translate", "smart_reply"},
			},
			"input": map[string]any{
				"type":        "string",
				"description": "Input text. Supports {{variable}} placeholders.",
				"minLength":   1,
			},
			"params": map[string]any{
				"type":        "object",
				"description": "Mode-specific parameters, e.g. target_language for translate. Values support placeholders.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
		"required": []string{"mode", "input"},
	}
}
