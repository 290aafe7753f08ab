package github

import (
	"context"
	"net/http"

	"github.com/cogniteev/easy-upgrade/internal/action"
)

// Plugin registers the asset fetcher.
type Plugin struct {
	// HTTPClient is shared by every fetcher. Nil means a default client per fetcher.
	HTTPClient *http.Client
}

// Register implements action.Plugin.
func (p Plugin) Register(reg *action.Registry) error {
	return reg.Register(action.Descriptor{
		Role:      action.RoleFetcher,
		Name:      ActionName,
		Providers: action.OnlyProviders(ProviderName),
		Factory: func(_ context.Context, binding *action.Binding) (action.Action, error) {
			return NewFetcher(binding, p.HTTPClient)
		},
	})
}
