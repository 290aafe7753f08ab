package upgrade

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/template"
)

// Env carries what building releases needs.
type Env struct {
	// Registry resolves action names.
	Registry *action.Registry
	// Templates is handed to actions through their binding. Nil disables templating.
	Templates template.Renderer
	// TempDir is where workspaces are created, the system default when empty.
	TempDir string
}

// releaseShape holds the action entries of a release before anything is built.
type releaseShape struct {
	fetch   entry
	install entry
	post    []entry
}

func parseShape(provider string, section config.Section) (releaseShape, error) {
	fetch, err := singleEntry(section.Values, config.KeyFetch)
	if err != nil {
		return releaseShape{}, fmt.Errorf("release %s:%s: %w", provider, section.Name, err)
	}

	install, err := singleEntry(section.Values, config.KeyInstall)
	if err != nil {
		return releaseShape{}, fmt.Errorf("release %s:%s: %w", provider, section.Name, err)
	}

	post, err := listEntries(section.Values, config.KeyPostInstall)
	if err != nil {
		return releaseShape{}, fmt.Errorf("release %s:%s: %w", provider, section.Name, err)
	}

	return releaseShape{fetch: fetch, install: install, post: post}, nil
}

// bound is an action instance together with the name it was configured under.
type bound[T action.Action] struct {
	name string
	role action.Role
	impl T
}

// Release is one upgradeable unit.
type Release struct {
	name           string
	provider       string
	config         config.Values
	cleanupTempDir bool
	tempDir        string

	fetcher        bound[action.Fetcher]
	installer      bound[action.Installer]
	postInstallers []bound[action.PostInstaller]

	mu     sync.Mutex
	closed bool
}

// NewRelease validates the fetch, install and post-install entries of
// section and builds their actions for provider. Shape errors are reported
// before any action is built. If an action fails to build, the ones built
// before it are cleaned up.
func NewRelease(ctx context.Context, env Env, provider *Provider, section config.Section) (*Release, error) {
	shape, err := parseShape(provider.name, section)
	if err != nil {
		return nil, err
	}

	r := &Release{
		name:           section.Name,
		provider:       provider.name,
		config:         section.Values.Clone(),
		cleanupTempDir: provider.cleanupTempDir,
		tempDir:        env.TempDir,
	}

	var built []bound[action.Action]

	build := func(role action.Role, e entry) (action.Action, error) {
		binding := &action.Binding{
			Provider:       provider.name,
			ProviderConfig: provider.config,
			Release:        r.name,
			ReleaseConfig:  r.config,
			Config:         e.config,
			Templates:      env.Templates,
		}

		a, err := env.Registry.Build(ctx, role, e.name, binding)
		if err != nil {
			slices.Reverse(built)
			cleanupAll(ctx, built)

			return nil, fmt.Errorf("release %s:%s: %w", provider.name, r.name, err)
		}

		built = append(built, bound[action.Action]{name: e.name, role: role, impl: a})

		return a, nil
	}

	fetcher, err := build(action.RoleFetcher, shape.fetch)
	if err != nil {
		return nil, err
	}

	r.fetcher = bound[action.Fetcher]{name: shape.fetch.name, role: action.RoleFetcher, impl: fetcher.(action.Fetcher)}

	installer, err := build(action.RoleInstaller, shape.install)
	if err != nil {
		return nil, err
	}

	r.installer = bound[action.Installer]{name: shape.install.name, role: action.RoleInstaller, impl: installer.(action.Installer)}

	for _, e := range shape.post {
		post, err := build(action.RolePostInstaller, e)
		if err != nil {
			return nil, err
		}

		r.postInstallers = append(r.postInstallers, bound[action.PostInstaller]{
			name: e.name,
			role: action.RolePostInstaller,
			impl: post.(action.PostInstaller),
		})
	}

	return r, nil
}

// Name returns the release name.
func (r *Release) Name() string {
	return r.name
}

// Provider returns the name of the provider the release belongs to.
func (r *Release) Provider() string {
	return r.provider
}

// Config returns the release settings.
func (r *Release) Config() config.Values {
	return r.config.Clone()
}

// FetcherName returns the configured fetch action.
func (r *Release) FetcherName() string {
	return r.fetcher.name
}

// InstallerName returns the configured install action.
func (r *Release) InstallerName() string {
	return r.installer.name
}

// PostInstallerNames returns the configured post-install actions in order.
func (r *Release) PostInstallerNames() []string {
	names := make([]string, 0, len(r.postInstallers))
	for _, p := range r.postInstallers {
		names = append(names, p.name)
	}

	return names
}

// Versions asks the installer then the fetcher for their versions.
func (r *Release) Versions(ctx context.Context) (release.Versions, error) {
	if r.isClosed() {
		return release.Versions{}, fmt.Errorf("%s:%s: %w", r.provider, r.name, ErrReleaseClosed)
	}

	installed, err := r.installer.impl.InstalledVersion(ctx)
	if err != nil {
		return release.Versions{}, newStepError(r, StepInstall, r.installer.name, err)
	}

	candidate, err := r.fetcher.impl.CandidateVersion(ctx)
	if err != nil {
		return release.Versions{}, newStepError(r, StepFetch, r.fetcher.name, err)
	}

	return release.Versions{Installed: installed, Candidate: candidate}, nil
}

// ShouldUpgrade reports whether the candidate version must be installed,
// together with that candidate.
func (r *Release) ShouldUpgrade(ctx context.Context) (bool, release.Version, error) {
	ctx = r.logContext(ctx)

	versions, err := r.Versions(ctx)
	if err != nil {
		return false, release.None, err
	}

	installed, candidate := versions.Installed, versions.Candidate

	switch {
	case candidate.IsNone():
		logger.Info(ctx, "No candidate version available")

		return false, release.None, nil
	case installed.IsNone():
		logger.InfoKV(ctx, "Not installed yet", "candidate", candidate)

		return true, candidate, nil
	case installed.Equal(candidate):
		logger.InfoKV(ctx, "Already up to date", "version", installed)

		return false, candidate, nil
	case installed.GreaterThan(candidate):
		logger.WarnKV(ctx, "Installed version is newer than the candidate, not downgrading",
			"installed", installed, "candidate", candidate)

		return false, candidate, nil
	default:
		logger.InfoKV(ctx, "Upgrade available", "installed", installed, "candidate", candidate)

		return true, candidate, nil
	}
}

// Install upgrades the release when ShouldUpgrade says so. It returns false
// without side effects otherwise. After the pipeline ran, successfully or
// not, the release actions are cleaned up and the release cannot be used
// again.
func (r *Release) Install(ctx context.Context) (bool, error) {
	upgrade, candidate, err := r.ShouldUpgrade(ctx)
	if err != nil {
		return false, err
	}

	if !upgrade {
		return false, nil
	}

	if err := r.run(ctx, candidate); err != nil {
		return false, err
	}

	return true, nil
}

// run executes fetch, install and post-install steps for version in a fresh
// workspace, then cleans up every action and removes the workspace.
func (r *Release) run(ctx context.Context, version release.Version) (err error) {
	ctx = logger.WithKV(r.logContext(ctx), "run_id", uuid.NewString(), "version", version)

	ctx, span := tracer().Start(ctx, "release.install", trace.WithAttributes(
		append(releaseAttributes(r), attribute.String("easy_upgrade.version", version.String()))...))

	started := time.Now()

	defer func() {
		recordPipeline(ctx, r, started, err)
		endSpan(span, err)
	}()

	ws, err := newWorkspace(r.tempDir, r.name, !r.cleanupTempDir)
	if err != nil {
		r.Close(ctx)

		return fmt.Errorf("%s:%s: %w", r.provider, r.name, err)
	}

	logger.InfoKV(ctx, "Starting upgrade", "workspace", ws.dir)

	err = r.pipeline(ctx, ws.dir, version)

	r.Close(ctx)
	ws.remove(ctx)

	if err != nil {
		logger.ErrorKV(ctx, "Upgrade failed", "error", err)

		return err
	}

	logger.Info(ctx, "Upgrade completed")

	return nil
}

func (r *Release) pipeline(ctx context.Context, dir string, version release.Version) error {
	if err := r.step(ctx, StepFetch, r.fetcher.name, func(ctx context.Context) error {
		return r.fetcher.impl.Fetch(ctx, dir)
	}); err != nil {
		return err
	}

	if err := r.step(ctx, StepInstall, r.installer.name, func(ctx context.Context) error {
		return r.installer.impl.Install(ctx, dir, version)
	}); err != nil {
		return err
	}

	for _, post := range r.postInstallers {
		if err := r.step(ctx, StepPostInstall, post.name, func(ctx context.Context) error {
			return post.impl.Execute(ctx, dir, version)
		}); err != nil {
			return err
		}
	}

	return nil
}

func (r *Release) step(ctx context.Context, step Step, name string, fn func(context.Context) error) error {
	ctx, span := tracer().Start(ctx, string(step), trace.WithAttributes(attribute.String("easy_upgrade.action", name)))

	logger.DebugKV(ctx, "Running step", "step", step, "action", name)

	var err error
	if cause := fn(ctx); cause != nil {
		err = newStepError(r, step, name, cause)
	}

	endSpan(span, err)

	return err
}

// Close cleans up every action of the release once, in reverse construction
// order. Cleanup failures are logged and never returned.
func (r *Release) Close(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return
	}

	r.closed = true
	r.mu.Unlock()

	actions := make([]bound[action.Action], 0, 2+len(r.postInstallers))
	for _, post := range slices.Backward(r.postInstallers) {
		actions = append(actions, bound[action.Action]{name: post.name, role: post.role, impl: post.impl})
	}

	actions = append(actions,
		bound[action.Action]{name: r.installer.name, role: r.installer.role, impl: r.installer.impl},
		bound[action.Action]{name: r.fetcher.name, role: r.fetcher.role, impl: r.fetcher.impl},
	)

	cleanupAll(r.logContext(ctx), actions)
}

func (r *Release) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

func (r *Release) logContext(ctx context.Context) context.Context {
	return logger.WithKV(ctx, "provider", r.provider, "release", r.name)
}

// cleanupAll calls Cleanup on each action in the given order.
func cleanupAll(ctx context.Context, actions []bound[action.Action]) {
	for _, a := range actions {
		if err := a.impl.Cleanup(ctx); err != nil {
			logger.WarnKV(ctx, "Action cleanup failed", "role", a.role, "action", a.name, "error", err)
		}
	}
}
