package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

// ActionName is the key of the post-installer in release configuration.
const ActionName = "terminate-process"

var errNoNames = errors.New("names is required")

// Lister returns the running processes.
type Lister func() ([]ps.Process, error)

// Killer terminates the process with the given pid.
type Killer func(pid int) error

// KillProcess kills pid with os.Process.Kill.
func KillProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return p.Kill()
}

type settings struct {
	Names []string `mapstructure:"names"`
}

// Terminator kills running processes of the installed executables so the
// next start picks up the new version.
type Terminator struct {
	action.Base

	names []string
	list  Lister
	kill  Killer
	self  int
}

// New builds a Terminator. Nil list and kill fall back to go-ps and KillProcess.
func New(binding *action.Binding, list Lister, kill Killer) (*Terminator, error) {
	var s settings
	if err := binding.Config.DecodeStrict(&s); err != nil {
		return nil, fmt.Errorf("terminate-process settings: %w", err)
	}

	if len(s.Names) == 0 {
		return nil, errNoNames
	}

	if list == nil {
		list = ps.Processes
	}

	if kill == nil {
		kill = KillProcess
	}

	return &Terminator{
		Base:  action.NewBase(binding),
		names: s.Names,
		list:  list,
		kill:  kill,
		self:  os.Getpid(),
	}, nil
}

// Execute kills every process whose executable matches one of the names,
// except the current process.
func (t *Terminator) Execute(ctx context.Context, _ string, version release.Version) error {
	wanted := make(map[string]struct{}, len(t.names))

	for _, name := range t.names {
		rendered, err := t.Binding().Render(name, version.String(), nil)
		if err != nil {
			return err
		}

		wanted[executableName(rendered)] = struct{}{}
	}

	processList, err := t.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == t.self {
			continue
		}

		if _, found := wanted[executableName(process.Executable())]; !found {
			continue
		}

		logger.InfoKV(ctx, "Terminating process", "pid", process.Pid(), "executable", process.Executable())

		if err = t.kill(process.Pid()); err != nil {
			return fmt.Errorf("kill %s (%d): %w", process.Executable(), process.Pid(), err)
		}
	}

	return nil
}

// executableName keeps the base name and drops ".exe" on Windows.
func executableName(name string) string {
	name = filepath.Base(name)
	if runtime.GOOS == "windows" {
		name = strings.TrimSuffix(strings.ToLower(name), ".exe")
	}

	return name
}
