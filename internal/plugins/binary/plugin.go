package binary

import (
	"context"

	"github.com/cogniteev/easy-upgrade/internal/action"
)

// Plugin registers the binary installer for every provider.
type Plugin struct{}

// Register implements action.Plugin.
func (Plugin) Register(reg *action.Registry) error {
	return reg.Register(action.Descriptor{
		Role:      action.RoleInstaller,
		Name:      ActionName,
		Providers: action.AnyProvider(),
		Factory: func(_ context.Context, binding *action.Binding) (action.Action, error) {
			return NewInstaller(binding)
		},
	})
}
