//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/plugins"
	"github.com/cogniteev/easy-upgrade/internal/template"
	"github.com/cogniteev/easy-upgrade/internal/upgrade"
)

// Options are the inputs shared by every service.
type Options struct {
	// ConfigPath is the settings file, config.DefaultPath() when empty.
	ConfigPath string
	// TempDir is where release workspaces are created, the system default when empty.
	TempDir string
	// Plugins replaces the endpoints of the built-in actions.
	Plugins plugins.Options
}

// Session is a loaded configuration with its coordinator.
type Session struct {
	// Path is the configuration file that was loaded.
	Path        string
	Registry    *action.Registry
	Document    *config.Document
	Coordinator *upgrade.Coordinator
}

// ResolveConfigPath returns path, or the default location when it is empty.
func ResolveConfigPath(path string) string {
	if path == "" {
		return config.DefaultPath()
	}

	return path
}

// NewRegistry returns a registry holding every built-in action.
func NewRegistry(opts plugins.Options) (*action.Registry, error) {
	reg := action.NewRegistry()
	if err := plugins.RegisterAll(reg, opts); err != nil {
		return nil, err
	}

	return reg, nil
}

// Open loads the configuration and builds every provider and release.
// Callers must Close the session.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	path := ResolveConfigPath(opts.ConfigPath)

	logger.DebugKV(ctx, "Loading configuration", "path", path)

	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	reg, err := NewRegistry(opts.Plugins)
	if err != nil {
		return nil, err
	}

	coordinator, err := upgrade.New(ctx, upgrade.Env{
		Registry:  reg,
		Templates: template.NewHCL(),
		TempDir:   opts.TempDir,
	}, doc)
	if err != nil {
		return nil, fmt.Errorf("configure providers from %s: %w", path, err)
	}

	return &Session{
		Path:        path,
		Registry:    reg,
		Document:    doc,
		Coordinator: coordinator,
	}, nil
}

// Close cleans up whatever actions are still alive.
func (s *Session) Close(ctx context.Context) {
	s.Coordinator.Close(ctx)
}
