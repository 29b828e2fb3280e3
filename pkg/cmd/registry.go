// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/routinely/routinely/pkg/actions/aitransform"
	"github.com/routinely/routinely/pkg/actions/conditional"
	"github.com/routinely/routinely/pkg/actions/delay"
	"github.com/routinely/routinely/pkg/actions/replymessage"
	"github.com/routinely/routinely/pkg/actions/sendmessage"
	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/registry"
)

// NewRegistry builds the handler registry with every native action type.
func NewRegistry(logger *slog.Logger, messenger integration.Messenger, aiClient integration.AIClient) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(sendmessage.NewFactory(messenger))
	reg.Register(replymessage.NewFactory(messenger))
	reg.Register(aitransform.NewFactory(aiClient))
	reg.Register(delay.NewFactory())
	// Conditionals build their branch handlers through the registry itself.
	reg.Register(conditional.NewFactory(reg))

	return reg
}
