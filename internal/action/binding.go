package action

import (
	"context"
	"fmt"
	"maps"

	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/template"
)

// Binding is everything an action instance is bound to: its provider and
// release, their settings, and the settings of the step itself.
type Binding struct {
	// Provider is the provider name.
	Provider string
	// ProviderConfig holds the provider settings without its releases.
	ProviderConfig config.Values
	// Release is the release name.
	Release string
	// ReleaseConfig holds the release settings, action entries included.
	ReleaseConfig config.Values
	// Config holds the settings of this step only.
	Config config.Values
	// Templates resolves placeholders in settings. Nil disables templating.
	Templates template.Renderer
}

// Render resolves placeholders in text. version may be release.None's string
// form (empty), in which case ${version} is not available. extra adds
// plugin-specific variables.
func (b *Binding) Render(text, version string, extra map[string]string) (string, error) {
	if b.Templates == nil {
		return text, nil
	}

	out, err := b.Templates.Render(text, template.Vars{
		Provider: b.Provider,
		Release:  b.Release,
		Version:  version,
		Extra:    maps.Clone(extra),
	})
	if err != nil {
		return "", fmt.Errorf("%s:%s: %w", b.Provider, b.Release, err)
	}

	return out, nil
}

// Factory builds an action instance for a binding.
type Factory func(ctx context.Context, binding *Binding) (Action, error)
