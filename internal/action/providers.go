package action

import (
	"fmt"
	"slices"
	"strings"
)

// Providers restricts which providers may use an action.
// The zero value allows every provider.
type Providers struct {
	names      []string
	restricted bool
}

// AnyProvider allows every provider.
func AnyProvider() Providers {
	return Providers{}
}

// OnlyProviders allows the named providers only.
// At least one non-empty name is required, Register rejects anything else.
func OnlyProviders(names ...string) Providers {
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	return Providers{names: slices.Compact(sorted), restricted: true}
}

// Restricted reports whether the action is limited to some providers.
func (p Providers) Restricted() bool {
	return p.restricted
}

// Names returns the allowed provider names, nil when unrestricted.
func (p Providers) Names() []string {
	return slices.Clone(p.names)
}

// Allows reports whether provider may use the action.
func (p Providers) Allows(provider string) bool {
	if !p.restricted {
		return true
	}

	_, found := slices.BinarySearch(p.names, provider)

	return found
}

// String lists the allowed providers, "*" when unrestricted.
func (p Providers) String() string {
	if !p.restricted {
		return "*"
	}

	return strings.Join(p.names, ",")
}

func (p Providers) validate() error {
	if !p.restricted {
		return nil
	}

	if len(p.names) == 0 {
		return fmt.Errorf("%w: restriction names no provider", ErrInvalidProviders)
	}

	if slices.Contains(p.names, "") {
		return fmt.Errorf("%w: empty provider name", ErrInvalidProviders)
	}

	return nil
}
