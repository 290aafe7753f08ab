package s3

import (
	"context"

	"github.com/cogniteev/easy-upgrade/internal/action"
)

// Plugin registers the objects fetcher.
type Plugin struct {
	// NewAPI reaches S3. Nil means NewClient.
	NewAPI ClientFactory
}

// Register implements action.Plugin.
func (p Plugin) Register(reg *action.Registry) error {
	return reg.Register(action.Descriptor{
		Role:      action.RoleFetcher,
		Name:      ActionName,
		Providers: action.OnlyProviders(ProviderName),
		Factory: func(ctx context.Context, binding *action.Binding) (action.Action, error) {
			return NewFetcher(ctx, binding, p.NewAPI)
		},
	})
}
