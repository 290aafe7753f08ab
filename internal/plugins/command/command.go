package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

// ActionName is the key of the post-installer in release configuration.
const ActionName = "command"

// Environment variables describing the installed release.
const (
	EnvProvider  = "EASY_UPGRADE_PROVIDER"
	EnvRelease   = "EASY_UPGRADE_RELEASE"
	EnvVersion   = "EASY_UPGRADE_VERSION"
	EnvWorkspace = "EASY_UPGRADE_WORKSPACE"
)

var (
	errNoCommand   = errors.New("one of run or shell is required")
	errTwoCommands = errors.New("run and shell are mutually exclusive")
)

type settings struct {
	Run   []string `mapstructure:"run"`
	Shell string   `mapstructure:"shell"`
	Dir   string   `mapstructure:"dir"`
}

// Command runs a program after install.
type Command struct {
	action.Base

	run   []string
	shell string
	dir   string
}

// New builds a Command from its binding.
func New(binding *action.Binding) (*Command, error) {
	var s settings
	if err := binding.Config.DecodeStrict(&s); err != nil {
		return nil, fmt.Errorf("command settings: %w", err)
	}

	switch {
	case len(s.Run) == 0 && s.Shell == "":
		return nil, errNoCommand
	case len(s.Run) > 0 && s.Shell != "":
		return nil, errTwoCommands
	}

	return &Command{
		Base:  action.NewBase(binding),
		run:   s.Run,
		shell: s.Shell,
		dir:   s.Dir,
	}, nil
}

// Execute runs the command with placeholders resolved against version.
func (c *Command) Execute(ctx context.Context, dir string, version release.Version) error {
	argv, err := c.argv(version)
	if err != nil {
		return err
	}

	workDir := dir
	if c.dir != "" {
		rendered, err := c.Binding().Render(c.dir, version.String(), nil)
		if err != nil {
			return err
		}

		if workDir, err = homedir.Expand(rendered); err != nil {
			return fmt.Errorf("expand %q: %w", rendered, err)
		}
	}

	binding := c.Binding()

	//nolint:gosec // Commands come from the user's own configuration.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = filepath.Clean(workDir)
	cmd.Env = append(os.Environ(),
		EnvProvider+"="+binding.Provider,
		EnvRelease+"="+binding.Release,
		EnvVersion+"="+version.String(),
		EnvWorkspace+"="+dir,
	)

	logger.InfoKV(ctx, "Running command", "command", strings.Join(argv, " "), "dir", cmd.Dir)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		logger.DebugKV(ctx, "Command output", "output", strings.TrimSpace(string(out)))
	}

	if err != nil {
		return fmt.Errorf("%s: %w", argv[0], err)
	}

	return nil
}

func (c *Command) argv(version release.Version) ([]string, error) {
	if c.shell != "" {
		script, err := c.Binding().Render(c.shell, version.String(), nil)
		if err != nil {
			return nil, err
		}

		return []string{"sh", "-c", script}, nil
	}

	argv := make([]string, 0, len(c.run))

	for _, arg := range c.run {
		rendered, err := c.Binding().Render(arg, version.String(), nil)
		if err != nil {
			return nil, err
		}

		argv = append(argv, rendered)
	}

	return argv, nil
}
