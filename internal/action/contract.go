package action

import (
	"context"

	"github.com/cogniteev/easy-upgrade/internal/domain/release"
)

// Action is what every factory returns.
type Action interface {
	// Cleanup releases whatever the action acquired. It is called exactly once
	// per constructed action, whether or not its step ran or succeeded.
	Cleanup(ctx context.Context) error
}

// Fetcher finds and downloads the latest release artifacts.
type Fetcher interface {
	Action

	// CandidateVersion returns the newest version available upstream, or release.None.
	CandidateVersion(ctx context.Context) (release.Version, error)
	// Fetch stores the artifacts of the candidate version into dir.
	Fetch(ctx context.Context, dir string) error
}

// Installer applies fetched artifacts.
type Installer interface {
	Action

	// InstalledVersion returns the version currently installed, or release.None.
	InstalledVersion(ctx context.Context) (release.Version, error)
	// Install applies the artifacts found in dir as the given version.
	Install(ctx context.Context, dir string, version release.Version) error
}

// PostInstaller runs after a successful install.
type PostInstaller interface {
	Action

	// Execute runs the step for the freshly installed version.
	Execute(ctx context.Context, dir string, version release.Version) error
}

// Base can be embedded by actions with nothing to clean up.
type Base struct {
	binding *Binding
}

// NewBase returns a Base holding the binding.
func NewBase(binding *Binding) Base {
	return Base{binding: binding}
}

// Binding returns the binding the action was built for.
func (b Base) Binding() *Binding {
	return b.binding
}

// Cleanup does nothing.
func (Base) Cleanup(context.Context) error {
	return nil
}

// As checks that a implements the interface expected for role.
func As(role Role, a Action) error {
	var ok bool

	switch role {
	case RoleFetcher:
		_, ok = a.(Fetcher)
	case RoleInstaller:
		_, ok = a.(Installer)
	case RolePostInstaller:
		_, ok = a.(PostInstaller)
	default:
		return ErrInvalidRole
	}

	if !ok {
		return ErrRoleMismatch
	}

	return nil
}
