package upgrade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/template"
)

var errBoom = errors.New("boom")

// journal records what fake actions did, in order.
type journal struct {
	mu         sync.Mutex
	events     []string
	built      int
	workspaces []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = append(j.events, event)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]string(nil), j.events...)
}

func (j *journal) markBuilt() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.built++
}

func (j *journal) workspace(dir string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.workspaces = append(j.workspaces, dir)
}

type fakeFetcher struct {
	j       *journal
	release string
	cfg     config.Values
}

func (f *fakeFetcher) CandidateVersion(context.Context) (release.Version, error) {
	if fail, _ := f.cfg.Bool("candidate-error", false); fail {
		return release.None, errBoom
	}

	s, _ := f.cfg.String("candidate", "")

	return release.ParseOptionalVersion(s)
}

func (f *fakeFetcher) Fetch(_ context.Context, dir string) error {
	f.j.add(f.release + ":fetch")
	f.j.workspace(dir)

	if fail, _ := f.cfg.Bool("fail", false); fail {
		return errBoom
	}

	return os.WriteFile(filepath.Join(dir, "artifact"), []byte(f.release), 0o600)
}

func (f *fakeFetcher) Cleanup(context.Context) error {
	f.j.add(f.release + ":cleanup:fetch")

	return nil
}

type fakeInstaller struct {
	j       *journal
	release string
	cfg     config.Values
}

func (f *fakeInstaller) InstalledVersion(context.Context) (release.Version, error) {
	s, _ := f.cfg.String("installed", "")

	return release.ParseOptionalVersion(s)
}

func (f *fakeInstaller) Install(_ context.Context, dir string, version release.Version) error {
	f.j.add(f.release + ":install:" + version.String())

	if _, err := os.Stat(filepath.Join(dir, "artifact")); err != nil {
		return err
	}

	if fail, _ := f.cfg.Bool("fail", false); fail {
		return errBoom
	}

	return nil
}

func (f *fakeInstaller) Cleanup(context.Context) error {
	f.j.add(f.release + ":cleanup:install")

	// Cleanup failures are only logged.
	if fail, _ := f.cfg.Bool("cleanup-error", false); fail {
		return errBoom
	}

	return nil
}

type fakePost struct {
	j       *journal
	release string
	id      string
	cfg     config.Values
}

func (f *fakePost) Execute(context.Context, string, release.Version) error {
	f.j.add(f.release + ":post:" + f.id)

	if fail, _ := f.cfg.Bool("fail", false); fail {
		return errBoom
	}

	return nil
}

func (f *fakePost) Cleanup(context.Context) error {
	f.j.add(f.release + ":cleanup:post:" + f.id)

	return nil
}

// newTestRegistry registers the fake actions. "restricted" is a fetcher
// limited to the "github" provider.
func newTestRegistry(t *testing.T, j *journal) *action.Registry {
	t.Helper()

	fetcher := func(_ context.Context, b *action.Binding) (action.Action, error) {
		j.markBuilt()

		return &fakeFetcher{j: j, release: b.Release, cfg: b.Config}, nil
	}

	reg := action.NewRegistry()
	require.NoError(t, action.RegisterPlugins(reg, action.PluginFunc(func(r *action.Registry) error {
		return errors.Join(
			r.Register(action.Descriptor{Role: action.RoleFetcher, Name: "fake", Factory: fetcher}),
			r.Register(action.Descriptor{
				Role:      action.RoleFetcher,
				Name:      "restricted",
				Providers: action.OnlyProviders("github"),
				Factory:   fetcher,
			}),
			r.Register(action.Descriptor{
				Role: action.RoleInstaller,
				Name: "fake",
				Factory: func(_ context.Context, b *action.Binding) (action.Action, error) {
					j.markBuilt()

					return &fakeInstaller{j: j, release: b.Release, cfg: b.Config}, nil
				},
			}),
			r.Register(action.Descriptor{
				Role: action.RolePostInstaller,
				Name: "fake",
				Factory: func(_ context.Context, b *action.Binding) (action.Action, error) {
					j.markBuilt()

					id, err := b.Config.String("id", "")
					if err != nil {
						return nil, err
					}

					return &fakePost{j: j, release: b.Release, id: id, cfg: b.Config}, nil
				},
			}),
			r.Register(action.Descriptor{
				Role: action.RolePostInstaller,
				Name: "broken",
				Factory: func(context.Context, *action.Binding) (action.Action, error) {
					return nil, errBoom
				},
			}),
		)
	})))

	return reg
}

// newTestEnv returns an Env whose workspaces live under a test directory.
func newTestEnv(t *testing.T, j *journal) Env {
	t.Helper()

	return Env{
		Registry:  newTestRegistry(t, j),
		Templates: template.NewHCL(),
		TempDir:   t.TempDir(),
	}
}

// buildCoordinator parses document and builds a coordinator over it.
func buildCoordinator(t *testing.T, env Env, document string) (*Coordinator, error) {
	t.Helper()

	doc, err := config.Parse([]byte(document))
	require.NoError(t, err)

	return New(context.Background(), env, doc)
}

// mustCoordinator is buildCoordinator failing the test on error.
func mustCoordinator(t *testing.T, env Env, document string) *Coordinator {
	t.Helper()

	c, err := buildCoordinator(t, env, document)
	require.NoError(t, err)

	t.Cleanup(func() { c.Close(context.Background()) })

	return c
}

// singleRelease builds a document with one release of provider "local".
func singleRelease(installed, candidate, extra string) string {
	return `
local:
  releases:
    tool:
      fetch:
        fake: {candidate: "` + candidate + `"}
      install:
        fake: {installed: "` + installed + `"}
` + extra
}
