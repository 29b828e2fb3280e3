package sendmessage

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
	return models.ActionTypeSendMessage
}

func (f *Factory) Create(action *models.Action) (registry.Handler, error) {
	if action.SendMessage == nil {
		return nil, fmt.Errorf("%w: action %s has no send_message config", models.ErrInvalidAction, action.ID)
	}

	return NewAction(action.SendMessage, f.messenger), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_user_id": map[string]any{
				"type":        "string",
				"description": "Recipient user id. Empty sends to the triggering user. Supports {{variable}} placeholders.",
			},
			"platform": map[string]any{
				"type":        "string",
				"description": "Delivery platform. Empty uses the recipient's default channel.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Message body. Supports {{variable}} placeholders.",
				"minLength":   1,
			},
		},
		"required": []string{"text"},
	}
}
