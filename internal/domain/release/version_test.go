package release

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// TestParseVersion checks prefix stripping, raw preservation and invalid inputs.
func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("v1.2.3")
	require.NoError(t, err)
	require.Equal(t, "v1.2.3", v.String())
	require.Equal(t, "1.2.3", v.Normalized())
	require.False(t, v.IsNone())
	require.True(t, v.Equal(MustParseVersion("1.2.3")))

	for _, bad := range []string{"", "v", "  ", "not-a-version", "1.2.3.4.5"} {
		_, err := ParseVersion(bad)
		require.ErrorIs(t, err, ErrInvalidVersion, bad)
	}
}

// TestParseStrictVersion checks only complete versions are accepted.
func TestParseStrictVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseStrictVersion("v1.2.3-rc.1")
	require.NoError(t, err)
	require.Equal(t, "v1.2.3-rc.1", v.String())
	require.Equal(t, "1.2.3-rc.1", v.Normalized())

	for _, bad := range []string{"", "1", "1.2", "1-2.0.0"} {
		_, err := ParseStrictVersion(bad)
		require.ErrorIs(t, err, ErrInvalidVersion, bad)

		if bad == "1-2.0.0" {
			_, err = ParseVersion(bad)
			require.NoError(t, err, "the lenient parser reads it as a prerelease")
		}
	}
}

// TestParseOptionalVersion ensures empty input maps to None.
func TestParseOptionalVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseOptionalVersion(" ")
	require.NoError(t, err)
	require.True(t, v.IsNone())
	require.Empty(t, v.String())
	require.Empty(t, v.Normalized())

	v, err = ParseOptionalVersion("2.0.0")
	require.NoError(t, err)
	require.Equal(t, "2.0.0", v.String())
}

// TestCompare covers None handling, prereleases and build metadata.
func TestCompare(t *testing.T) {
	t.Parallel()

	one := MustParseVersion("1.0.0")
	rc := MustParseVersion("1.0.0-rc.1")
	two := MustParseVersion("v2.0.0")

	require.True(t, None.Equal(Version{}))
	require.True(t, None.LessThan(rc))
	require.True(t, rc.LessThan(one))
	require.True(t, two.GreaterThan(one))
	require.Equal(t, 0, MustParseVersion("1.0.0+build.7").Compare(one))
	require.Equal(t, 1, one.Compare(None))
	require.Equal(t, -1, None.Compare(one))

	require.True(t, Max(one, None, two, rc).Equal(two))
	require.True(t, Max().IsNone())
}

// TestVersionsOutdated checks which installed/candidate pairs are reported as outdated.
func TestVersionsOutdated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		installed, candidate string
		want                 bool
	}{
		{"", "", false},
		{"1.0.0", "", false},
		{"", "1.0.3", true},
		{"1.0.0", "1.0.0", false},
		{"v1.0.0", "1.0.0", false},
		{"2.0.0", "1.9.0", false},
		{"1.0.0", "1.0.1", true},
	}
	for _, tc := range cases {
		installed, err := ParseOptionalVersion(tc.installed)
		require.NoError(t, err)

		candidate, err := ParseOptionalVersion(tc.candidate)
		require.NoError(t, err)

		got := Versions{Installed: installed, Candidate: candidate}.Outdated()
		require.Equal(t, tc.want, got, "%s -> %s", tc.installed, tc.candidate)
	}

	pkg := Package{Provider: "github", Release: "docker/compose"}
	require.Equal(t, "github:docker/compose", pkg.Reference())
}

// genVersionString produces MAJOR.MINOR.PATCH strings with an optional prerelease.
func genVersionString() gopter.Gen {
	return gopter.CombineGens(
		gen.UIntRange(0, 30),
		gen.UIntRange(0, 30),
		gen.UIntRange(0, 30),
		gen.AlphaString(),
	).Map(func(values []any) string {
		s := fmt.Sprintf("%d.%d.%d", values[0], values[1], values[2])
		if pre, _ := values[3].(string); pre != "" {
			s += "-" + pre
		}

		return s
	})
}

// TestVersionPrefixProperty verifies that a leading "v" never changes the parsed value.
func TestVersionPrefixProperty(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("parse(v+s) == parse(s)", prop.ForAll(
		func(s string) bool {
			plain, errPlain := ParseVersion(s)
			prefixed, errPrefixed := ParseVersion("v" + s)

			if errPlain != nil || errPrefixed != nil {
				return (errPlain != nil) == (errPrefixed != nil)
			}

			return plain.Equal(prefixed) && plain.Normalized() == prefixed.Normalized()
		},
		genVersionString(),
	))

	properties.TestingRun(t)
}

// TestVersionOrderingProperty verifies the ordering is total and antisymmetric.
func TestVersionOrderingProperty(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("exactly one of <, ==, > holds", prop.ForAll(
		func(a, b string) bool {
			va, errA := ParseVersion(a)
			vb, errB := ParseVersion(b)

			if errA != nil || errB != nil {
				return true
			}

			holds := 0
			for _, ok := range []bool{va.LessThan(vb), va.Equal(vb), va.GreaterThan(vb)} {
				if ok {
					holds++
				}
			}

			return holds == 1 && va.Compare(vb) == -vb.Compare(va) && None.LessThan(va)
		},
		genVersionString(),
		genVersionString(),
	))

	properties.TestingRun(t)
}
