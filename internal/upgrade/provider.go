package upgrade

import (
	"context"
	"fmt"
	"slices"

	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

// Provider groups releases sharing one provider identity and configuration.
type Provider struct {
	name           string
	config         config.Values
	cleanupTempDir bool
	releases       []*Release
	index          map[string]*Release
}

// NewProvider builds the provider and all of its releases in declaration order.
// Every release is shape-checked before any action is built. When a release
// fails to build, the releases built before it are closed.
func NewProvider(ctx context.Context, env Env, section config.ProviderSection) (*Provider, error) {
	cleanupTempDir, err := validateProvider(section)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		name:           section.Name,
		config:         section.Values.Clone(),
		cleanupTempDir: cleanupTempDir,
		releases:       make([]*Release, 0, len(section.Releases)),
		index:          make(map[string]*Release, len(section.Releases)),
	}

	for _, rs := range section.Releases {
		r, err := NewRelease(ctx, env, p, rs)
		if err != nil {
			p.Close(ctx)

			return nil, err
		}

		p.releases = append(p.releases, r)
		p.index[r.name] = r
	}

	return p, nil
}

// validateProvider checks the provider settings and the shape of every
// release without building actions. It returns the cleanup-temp-dir setting.
func validateProvider(section config.ProviderSection) (bool, error) {
	cleanupTempDir, err := section.Values.Bool(config.KeyCleanupTempDir, true)
	if err != nil {
		return false, fmt.Errorf("provider %s: %w: %w", section.Name, ErrConfigShape, err)
	}

	seen := make(map[string]struct{}, len(section.Releases))

	for _, rs := range section.Releases {
		if _, dup := seen[rs.Name]; dup {
			return false, fmt.Errorf("provider %s: %w: release %q declared twice", section.Name, ErrConfigShape, rs.Name)
		}

		seen[rs.Name] = struct{}{}

		if _, err := parseShape(section.Name, rs); err != nil {
			return false, err
		}
	}

	return cleanupTempDir, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Config returns the provider settings without its releases.
func (p *Provider) Config() config.Values {
	return p.config.Clone()
}

// CleanupTempDir reports whether release workspaces are removed after a run.
func (p *Provider) CleanupTempDir() bool {
	return p.cleanupTempDir
}

// Releases returns the releases in declaration order.
func (p *Provider) Releases() []*Release {
	return slices.Clone(p.releases)
}

// Release returns the release with the given name.
func (p *Provider) Release(name string) (*Release, bool) {
	r, ok := p.index[name]

	return r, ok
}

// Install upgrades releases of the provider.
//
// Without names every release is checked and only outdated ones run their
// pipeline; releases left alone count as successful, so the result is true
// unless an error occurs. With names only those releases are installed and
// the result is the logical AND of their Install results, so an up-to-date
// release makes it false. Unknown names are reported before anything runs.
// The first error stops the batch.
func (p *Provider) Install(ctx context.Context, names ...string) (bool, error) {
	ctx = logger.WithKV(ctx, "provider", p.name)

	if len(names) == 0 {
		for _, r := range p.releases {
			if _, err := r.Install(ctx); err != nil {
				return false, err
			}
		}

		return true, nil
	}

	selected := make([]*Release, 0, len(names))

	for _, name := range names {
		r, ok := p.index[name]
		if !ok {
			return false, fmt.Errorf("%w: %s:%s", ErrUnknownRelease, p.name, name)
		}

		if !slices.Contains(selected, r) {
			selected = append(selected, r)
		}
	}

	result := true

	for _, r := range selected {
		installed, err := r.Install(ctx)
		if err != nil {
			return false, err
		}

		result = result && installed
	}

	return result, nil
}

// Close cleans up the actions of every release not cleaned up yet.
func (p *Provider) Close(ctx context.Context) {
	for _, r := range slices.Backward(p.releases) {
		r.Close(ctx)
	}
}
