package action

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cogniteev/easy-upgrade/internal/logger"
)

// Descriptor declares one action.
type Descriptor struct {
	// Role is the pipeline step the action serves.
	Role Role
	// Name is the key used in release configuration.
	Name string
	// Providers restricts which providers may use the action.
	Providers Providers
	// Factory builds instances.
	Factory Factory
}

type registryKey struct {
	role Role
	name string
}

// Registry maps (role, name) pairs to action descriptors.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]Descriptor)}
}

// Register adds an action to the catalogue.
func (r *Registry) Register(d Descriptor) error {
	if !d.Role.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRole, d.Role)
	}

	if d.Name == "" || d.Factory == nil {
		return fmt.Errorf("%w: %s %q needs a name and a factory", ErrInvalidDescriptor, d.Role, d.Name)
	}

	if err := d.Providers.validate(); err != nil {
		return fmt.Errorf("%s %q: %w", d.Role, d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{role: d.Role, name: d.Name}
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateAction, d.Role, d.Name)
	}

	r.entries[key] = d

	return nil
}

// Lookup returns the factory of an action usable by provider.
func (r *Registry) Lookup(role Role, name, provider string) (Factory, error) {
	r.mu.RLock()
	d, ok := r.entries[registryKey{role: role, name: name}]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownAction, role, name)
	}

	if !d.Providers.Allows(provider) {
		return nil, fmt.Errorf("%w: %s %q is limited to [%s], not %q",
			ErrProviderNotAllowed, role, name, d.Providers, provider)
	}

	return d.Factory, nil
}

// Build looks up an action, builds it for binding and checks it implements role.
func (r *Registry) Build(ctx context.Context, role Role, name string, binding *Binding) (Action, error) {
	factory, err := r.Lookup(role, name, binding.Provider)
	if err != nil {
		return nil, err
	}

	a, err := factory(ctx, binding)
	if err != nil {
		return nil, fmt.Errorf("build %s %q: %w", role, name, err)
	}

	if a == nil {
		return nil, fmt.Errorf("%w: %s %q factory returned no instance", ErrInvalidDescriptor, role, name)
	}

	if err := As(role, a); err != nil {
		// The instance exists, so it gets its chance to clean up.
		if cerr := a.Cleanup(ctx); cerr != nil {
			logger.WarnKV(ctx, "Action cleanup failed", "role", role, "action", name, "error", cerr)
		}

		return nil, fmt.Errorf("%s %q: %w", role, name, err)
	}

	return a, nil
}

// Descriptors returns every registered action ordered by role then name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := slices.Collect(maps.Values(r.entries))
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Descriptor) int {
		return cmp.Or(cmp.Compare(a.Role, b.Role), cmp.Compare(a.Name, b.Name))
	})

	return out
}

// Clear removes every action. Meant for tests that share a registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.entries)
}

// Plugin registers a set of actions.
type Plugin interface {
	Register(reg *Registry) error
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(reg *Registry) error

// Register calls f.
func (f PluginFunc) Register(reg *Registry) error {
	return f(reg)
}

// RegisterPlugins registers every plugin, stopping at the first failure.
func RegisterPlugins(reg *Registry, plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Register(reg); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}

	return nil
}
