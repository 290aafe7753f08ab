package release

// Versions is what is known about one package: the installed and candidate
// versions, either of which may be None.
type Versions struct {
	// Installed is the version the installer reports as present locally.
	Installed Version
	// Candidate is the version the fetcher reports as available upstream.
	Candidate Version
}

// Outdated reports whether a candidate exists and is newer than the installed
// version, or nothing is installed yet.
func (v Versions) Outdated() bool {
	if v.Candidate.IsNone() {
		return false
	}

	return v.Installed.IsNone() || v.Candidate.GreaterThan(v.Installed)
}

// Package identifies a release inside a provider together with its versions.
type Package struct {
	// Provider is the name of the provider the release belongs to.
	Provider string
	// Release is the release name, unique within its provider.
	Release string
	// Versions holds the installed and candidate versions.
	Versions Versions
}

// Reference returns the "provider:release" form accepted by the install command.
func (p Package) Reference() string {
	return p.Provider + ":" + p.Release
}
