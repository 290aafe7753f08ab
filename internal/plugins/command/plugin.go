package command

import (
	"context"

	"github.com/cogniteev/easy-upgrade/internal/action"
)

// Plugin registers the command post-installer for every provider.
type Plugin struct{}

// Register implements action.Plugin.
func (Plugin) Register(reg *action.Registry) error {
	return reg.Register(action.Descriptor{
		Role:      action.RolePostInstaller,
		Name:      ActionName,
		Providers: action.AnyProvider(),
		Factory: func(_ context.Context, binding *action.Binding) (action.Action, error) {
			return New(binding)
		},
	})
}
