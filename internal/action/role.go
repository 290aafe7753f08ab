package action

// Role is the pipeline step an action serves.
type Role int

const (
	// RoleFetcher reports candidate versions and downloads artifacts.
	RoleFetcher Role = iota + 1
	// RoleInstaller reports the installed version and applies artifacts.
	RoleInstaller
	// RolePostInstaller runs after a successful install.
	RolePostInstaller
)

// String returns the name used in configuration and messages.
func (r Role) String() string {
	switch r {
	case RoleFetcher:
		return "fetcher"
	case RoleInstaller:
		return "installer"
	case RolePostInstaller:
		return "post-installer"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleFetcher && r <= RolePostInstaller
}
