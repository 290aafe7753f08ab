package stow

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/template"
)

// fakeStow writes a script recording its working directory and arguments.
func fakeStow(t *testing.T) (string, string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	script := filepath.Join(dir, "fake-stow")

	body := "#!/bin/sh\necho \"$(basename \"$(pwd)\") $*\" >> " + logPath + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	return script, logPath
}

func calls(t *testing.T, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newTestInstaller(t *testing.T, cfg config.Values) *Installer {
	t.Helper()

	in, err := NewInstaller(&action.Binding{
		Provider:  "github",
		Release:   "acme/tool",
		Config:    cfg,
		Templates: template.NewHCL(),
	})
	require.NoError(t, err)

	return in
}

func workspace(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "tool"), []byte(content), 0o755))

	return dir
}

// TestInstalledVersion checks the greatest parsable package directory is reported.
func TestInstalledVersion(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := newTestInstaller(t, config.Values{"path": root, "activate": false})

	v, err := in.InstalledVersion(t.Context())
	require.NoError(t, err)
	require.True(t, v.IsNone())

	for _, name := range []string{"tool-1.2.0", "tool-1.10.0", "tool-nightly", "other-9.0.0"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "stow", name), 0o755))
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "stow", "tool-20.0.0"), nil, 0o644))

	v, err = in.InstalledVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, "1.10.0", v.String())
}

// TestInstallWithoutActivation checks the workspace is copied and nothing is stowed.
func TestInstallWithoutActivation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := newTestInstaller(t, config.Values{"path": root, "package": "tool", "activate": "false"})

	version := release.MustParseVersion("2.0.0")
	require.NoError(t, in.Install(t.Context(), workspace(t, "v2"), version))

	data, err := os.ReadFile(filepath.Join(root, "stow", "tool-2.0.0", "bin", "tool"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	err = in.Install(t.Context(), workspace(t, "again"), version)
	require.ErrorIs(t, err, errVersionExists)

	require.ErrorIs(t, in.Install(t.Context(), workspace(t, "none"), release.None), errNoVersion)
}

// TestInstallActivates checks other versions are unstowed before the new one is stowed.
func TestInstallActivates(t *testing.T) {
	t.Parallel()

	script, logPath := fakeStow(t)
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "stow", "tool-1.0.0"), 0o755))

	in := newTestInstaller(t, config.Values{"path": root, "stow": []any{"no-such-stow", script}})
	require.NoError(t, in.Install(t.Context(), workspace(t, "v1.1"), release.MustParseVersion("1.1.0")))

	require.Equal(t, []string{"stow -D tool-1.0.0", "stow tool-1.1.0"}, calls(t, logPath))
}

// TestSiblingPackageIgnored checks a package whose name extends ours is neither
// reported nor unstowed.
func TestSiblingPackageIgnored(t *testing.T) {
	t.Parallel()

	script, logPath := fakeStow(t)
	root := t.TempDir()

	for _, name := range []string{"tool-1.0.0", "tool-1-2.0.0"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "stow", name), 0o755))
	}

	in := newTestInstaller(t, config.Values{"path": root, "package": "tool", "stow": []any{script}})

	v, err := in.InstalledVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, "1.0.0", v.String())

	require.NoError(t, in.Install(t.Context(), workspace(t, "v1.1"), release.MustParseVersion("1.1.0")))
	require.Equal(t, []string{"stow -D tool-1.0.0", "stow tool-1.1.0"}, calls(t, logPath))
	require.DirExists(t, filepath.Join(root, "stow", "tool-1-2.0.0"))

	noActivation := newTestInstaller(t, config.Values{"path": root, "package": "tool", "activate": false})
	require.NoError(t, noActivation.Install(t.Context(), workspace(t, "v1.2"), release.MustParseVersion("1.2")))
	require.DirExists(t, filepath.Join(root, "stow", "tool-1.2.0"))

	v, err = noActivation.InstalledVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, "1.2.0", v.String())
}

// TestNewInstallerValidation checks required keys and executable lookup.
func TestNewInstallerValidation(t *testing.T) {
	t.Parallel()

	build := func(cfg config.Values) error {
		_, err := NewInstaller(&action.Binding{Provider: "p", Release: "r", Config: cfg})

		return err
	}

	require.ErrorIs(t, build(config.Values{}), errNoPath)
	require.ErrorIs(t, build(config.Values{"path": "/opt", "stow": "definitely-not-a-stow"}), errNoExecutable)
	require.ErrorIs(t, build(config.Values{"path": "/opt", "bogus": 1}), config.ErrInvalidValue)
	require.NoError(t, build(config.Values{"path": "~/.local", "activate": false}))
}

// TestPackageDefaultsToRepository checks the package name is the last release segment.
func TestPackageDefaultsToRepository(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := newTestInstaller(t, config.Values{"path": root, "activate": false})

	require.Equal(t, "tool", in.pkg)
	require.Equal(t, filepath.Join(root, "stow"), in.PackageDir())
}
