package upgrade

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
)

// Coordinator is the entry point over every configured provider.
type Coordinator struct {
	providers []*Provider
	index     map[string]*Provider
}

// New builds every provider of doc in declaration order. The whole document
// is shape-checked before the first action is built.
func New(ctx context.Context, env Env, doc *config.Document) (*Coordinator, error) {
	c := &Coordinator{
		providers: make([]*Provider, 0, len(doc.Providers)),
		index:     make(map[string]*Provider, len(doc.Providers)),
	}

	seen := make(map[string]struct{}, len(doc.Providers))

	for _, section := range doc.Providers {
		if _, dup := seen[section.Name]; dup {
			return nil, fmt.Errorf("%w: provider %q declared twice", ErrConfigShape, section.Name)
		}

		seen[section.Name] = struct{}{}

		if _, err := validateProvider(section); err != nil {
			return nil, err
		}
	}

	for _, section := range doc.Providers {
		p, err := NewProvider(ctx, env, section)
		if err != nil {
			c.Close(ctx)

			return nil, err
		}

		c.providers = append(c.providers, p)
		c.index[p.name] = p
	}

	return c, nil
}

// Providers returns the providers in declaration order.
func (c *Coordinator) Providers() []*Provider {
	return slices.Clone(c.providers)
}

// Provider returns the provider with the given name.
func (c *Coordinator) Provider(name string) (*Provider, error) {
	p, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	return p, nil
}

// ListPackagesVersions yields the installed and candidate versions of every
// release. Versions are resolved lazily as the sequence is consumed, and the
// sequence can be iterated again. A release whose versions cannot be
// resolved is yielded with its error; iteration goes on unless the consumer
// stops.
func (c *Coordinator) ListPackagesVersions(ctx context.Context) iter.Seq2[release.Package, error] {
	return func(yield func(release.Package, error) bool) {
		for _, p := range c.providers {
			for _, r := range p.releases {
				versions, err := r.Versions(ctx)

				pkg := release.Package{Provider: p.name, Release: r.name, Versions: versions}
				if !yield(pkg, err) {
					return
				}
			}
		}
	}
}

// ListOutdatedPackages is ListPackagesVersions restricted to releases with a
// candidate newer than the installed version, or not installed at all.
// Errors are always yielded.
func (c *Coordinator) ListOutdatedPackages(ctx context.Context) iter.Seq2[release.Package, error] {
	return func(yield func(release.Package, error) bool) {
		for pkg, err := range c.ListPackagesVersions(ctx) {
			if err == nil && !pkg.Versions.Outdated() {
				continue
			}

			if !yield(pkg, err) {
				return
			}
		}
	}
}

// InstallOutdated runs Install without names on every provider.
func (c *Coordinator) InstallOutdated(ctx context.Context) (bool, error) {
	for _, p := range c.providers {
		if _, err := p.Install(ctx); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Install installs the releases named by provider:release references.
// References are grouped per provider in first-seen order. Every reference
// is resolved before anything runs. The result is the AND of the provider
// results.
func (c *Coordinator) Install(ctx context.Context, refs ...string) (bool, error) {
	if len(refs) == 0 {
		return c.InstallOutdated(ctx)
	}

	var (
		order  []*Provider
		groups = make(map[string][]string)
	)

	for _, ref := range refs {
		providerName, releaseName, err := ParseReference(ref)
		if err != nil {
			return false, err
		}

		p, err := c.Provider(providerName)
		if err != nil {
			return false, err
		}

		if _, ok := p.Release(releaseName); !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownRelease, ref)
		}

		if _, seen := groups[p.name]; !seen {
			order = append(order, p)
		}

		groups[p.name] = append(groups[p.name], releaseName)
	}

	result := true

	for _, p := range order {
		installed, err := p.Install(ctx, groups[p.name]...)
		if err != nil {
			return false, err
		}

		result = result && installed
	}

	return result, nil
}

// Close cleans up the actions of every release not cleaned up yet.
func (c *Coordinator) Close(ctx context.Context) {
	for _, p := range slices.Backward(c.providers) {
		p.Close(ctx)
	}
}

// ParseReference splits "provider:release" at the first colon.
// Both parts must be non-empty.
func ParseReference(ref string) (string, string, error) {
	providerName, releaseName, ok := strings.Cut(ref, ":")
	if !ok || providerName == "" || releaseName == "" {
		return "", "", fmt.Errorf("%w: %q, expecting provider:release", ErrInvalidReference, ref)
	}

	return providerName, releaseName, nil
}
