package command

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

func newTestCommand(t *testing.T, cfg config.Values) *Command {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	c, err := New(&action.Binding{
		Provider:  "github",
		Release:   "acme/tool",
		Config:    cfg,
		Templates: template.NewHCL(),
	})
	require.NoError(t, err)

	return c
}

// TestShellEnvironment checks the release is described to the script through the environment.
func TestShellEnvironment(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "env.txt")
	c := newTestCommand(t, config.Values{
		"shell": `echo "$EASY_UPGRADE_PROVIDER $EASY_UPGRADE_RELEASE $EASY_UPGRADE_VERSION ${version}" > ` + out,
	})

	ws := t.TempDir()
	require.NoError(t, c.Execute(t.Context(), ws, release.MustParseVersion("1.4.2")))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "github acme/tool 1.4.2 1.4.2", strings.TrimSpace(string(data)))
}

// TestRunInWorkspace checks argv commands run in the workspace by default.
func TestRunInWorkspace(t *testing.T) {
	t.Parallel()

	c := newTestCommand(t, config.Values{"run": []any{"touch", "marker-${version}"}})

	ws := t.TempDir()
	require.NoError(t, c.Execute(t.Context(), ws, release.MustParseVersion("2.0.0")))
	require.FileExists(t, filepath.Join(ws, "marker-2.0.0"))
}

// TestRunInDir checks the dir setting overrides the workspace.
func TestRunInDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := newTestCommand(t, config.Values{"run": []any{"touch", "done"}, "dir": dir})

	require.NoError(t, c.Execute(t.Context(), t.TempDir(), release.MustParseVersion("2.0.0")))
	require.FileExists(t, filepath.Join(dir, "done"))
}

// TestFailingCommand checks a non-zero exit is an error.
func TestFailingCommand(t *testing.T) {
	t.Parallel()

	c := newTestCommand(t, config.Values{"shell": "exit 3"})
	require.Error(t, c.Execute(t.Context(), t.TempDir(), release.MustParseVersion("1.0.0")))
}

// TestNewValidation checks exactly one of run and shell is required.
func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(&action.Binding{Config: config.Values{}})
	require.ErrorIs(t, err, errNoCommand)

	_, err = New(&action.Binding{Config: config.Values{"run": []any{"true"}, "shell": "true"}})
	require.ErrorIs(t, err, errTwoCommands)

	_, err = New(&action.Binding{Config: config.Values{"run": "true", "timeout": "1s"}})
	require.ErrorIs(t, err, config.ErrInvalidValue)
}
