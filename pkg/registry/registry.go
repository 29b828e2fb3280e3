// Package registry maps action types to their handler factories. Handler
// configuration is checked against the factory's JSON schema before the
// handler is built, so a malformed action fails before any side effect.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/routinely/routinely/pkg/models"
)

// Handler executes one action against the execution context. Output is the
// action's result before any OutputVariable merge; warnings carry non-fatal
// conditions such as unresolved placeholders.
type Handler interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (output string, warnings []string, err error)
}

// HandlerFactory builds handlers for one action type.
type HandlerFactory interface {
	Type() models.ActionType
	// Schema is the JSON schema the action's config document must satisfy.
	Schema() map[string]any
	Create(action *models.Action) (Handler, error)
}

type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionType]HandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionType]HandlerFactory),
	}
}

func (r *Registry) Register(factory HandlerFactory) {
	r.factories[factory.Type()] = factory
}

// RegisteredTypes lists the action types with a registered factory.
func (r *Registry) RegisteredTypes() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	return types
}

// CreateHandler validates the action's config against the factory schema and
// builds the handler.
func (r *Registry) CreateHandler(action *models.Action) (Handler, error) {
	factory, ok := r.factories[action.Type]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", action.Type)
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}

	if err := validateSchema(configDocument(action), factory.Schema()); err != nil {
		return nil, fmt.Errorf("action %s: %w", action.ID, err)
	}

	return factory.Create(action)
}

// configDocument flattens the action's variant config into a generic map for
// schema validation.
func configDocument(action *models.Action) map[string]any {
	var config any

	switch action.Type {
	case models.ActionTypeSendMessage:
		config = action.SendMessage
	case models.ActionTypeReply:
		config = action.Reply
	case models.ActionTypeAITransform:
		config = action.AITransform
	case models.ActionTypeDelay:
		config = action.Delay
	case models.ActionTypeConditional:
		config = action.Conditional
	default:
		return map[string]any{}
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return map[string]any{}
	}

	document := map[string]any{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return map[string]any{}
	}

	return document
}

func validateSchema(document map[string]any, schema map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("config validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
