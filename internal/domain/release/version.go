package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a parsed, totally ordered release version.
//
// The zero value is the "none" state (nothing installed, no candidate) and
// sorts before every real version.
type Version struct {
	// raw is the string the version was parsed from, kept for display and directory names.
	raw string
	// parsed is nil for the none state.
	parsed *semver.Version
}

// None is the absent version.
//
//nolint:gochecknoglobals // Read-only sentinel value.
var None = Version{}

// ParseVersion parses s after stripping surrounding spaces and one leading "v" or "V".
// Short forms such as "1.2" are accepted and padded.
func ParseVersion(s string) (Version, error) {
	return parse(s, semver.NewVersion)
}

// ParseStrictVersion is ParseVersion requiring a full MAJOR.MINOR.PATCH form.
// It suits names where a version is embedded after other text, like "tool-1.2.0".
func ParseStrictVersion(s string) (Version, error) {
	return parse(s, semver.StrictNewVersion)
}

func parse(s string, parser func(string) (*semver.Version, error)) (Version, error) {
	raw := strings.TrimSpace(s)

	trimmed := raw
	if len(trimmed) > 0 && (trimmed[0] == 'v' || trimmed[0] == 'V') {
		trimmed = trimmed[1:]
	}

	if trimmed == "" {
		return None, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	parsed, err := parser(trimmed)
	if err != nil {
		return None, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}

	return Version{raw: raw, parsed: parsed}, nil
}

// ParseOptionalVersion is ParseVersion where an empty string means None.
func ParseOptionalVersion(s string) (Version, error) {
	if strings.TrimSpace(s) == "" {
		return None, nil
	}

	return ParseVersion(s)
}

// MustParseVersion is ParseVersion that panics, for literals in tests and defaults.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// IsNone reports whether v is the absent version.
func (v Version) IsNone() bool {
	return v.parsed == nil
}

// String returns the version as it was written, or "" for None.
func (v Version) String() string {
	return v.raw
}

// Normalized returns the canonical MAJOR.MINOR.PATCH[-pre][+meta] form, or "" for None.
func (v Version) Normalized() string {
	if v.parsed == nil {
		return ""
	}

	return v.parsed.String()
}

// Compare returns -1, 0 or 1. None is lower than any version and equal to itself.
// Build metadata is ignored, as semantic versioning requires.
func (v Version) Compare(o Version) int {
	switch {
	case v.parsed == nil && o.parsed == nil:
		return 0
	case v.parsed == nil:
		return -1
	case o.parsed == nil:
		return 1
	default:
		return v.parsed.Compare(o.parsed)
	}
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// LessThan reports whether v sorts before o.
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// GreaterThan reports whether v sorts after o.
func (v Version) GreaterThan(o Version) bool {
	return v.Compare(o) > 0
}

// Max returns the greatest of the given versions, None when empty.
func Max(versions ...Version) Version {
	best := None
	for _, v := range versions {
		if v.GreaterThan(best) {
			best = v
		}
	}

	return best
}
