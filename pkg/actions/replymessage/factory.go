package replymessage

import (
	"fmt"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/registry"
)

type Factory struct {
	messenger integration.Messenger
}

func NewFactory(messenger integration.Messenger) *Factory {
	return &Factory{messenger: messenger}
}

func (*Factory) Type() models.ActionType {
	return models.ActionTypeReply
}

func (f *Factory) Create(action *models.Action) (registry.Handler, error) {
	if action.Reply == nil {
		return nil, fmt.Errorf("%w: action %s has no reply config", models.ErrInvalidAction, action.ID)
	}

	return NewAction(action.Reply, f.messenger), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Reply body. Supports {{variable}} placeholders.",
				"minLength":   1,
			},
		},
		"required": []string{"text"},
	}
}
