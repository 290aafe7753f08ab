package release

import "time"

// InstallRecord is the marker an installer keeps next to what it installed.
type InstallRecord struct {
	// Release is the release name the record belongs to.
	Release string
	// Version is the installed version as reported by the fetcher.
	Version Version
	// Checksum is the base64 SHA-512 of the installed artifact, when there is one.
	Checksum string
	// InstalledAt is when the install finished.
	InstalledAt time.Time
}
