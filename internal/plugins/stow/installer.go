package stow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

// ActionName is the key of the installer in release configuration.
const ActionName = "stow"

const (
	packagesDirName = "stow"
	dirMode         = 0o755
)

var (
	errNoPath        = errors.New("path is required")
	errNoExecutable  = errors.New("no stow executable found")
	errVersionExists = errors.New("version directory already exists")
	errNoVersion     = errors.New("cannot install an empty version")
)

type settings struct {
	Path     string   `mapstructure:"path"`
	Package  string   `mapstructure:"package"`
	Activate *bool    `mapstructure:"activate"`
	Stow     []string `mapstructure:"stow"`
}

// Installer keeps versions side by side in a stow directory.
type Installer struct {
	action.Base

	root       string
	pkgDir     string
	pkg        string
	activate   bool
	executable string
}

// NewInstaller builds an Installer from its binding. The stow executable is
// only looked up when activation is enabled.
func NewInstaller(binding *action.Binding) (*Installer, error) {
	var s settings
	if err := binding.Config.DecodeStrict(&s); err != nil {
		return nil, fmt.Errorf("stow settings: %w", err)
	}

	if s.Path == "" {
		return nil, errNoPath
	}

	rendered, err := binding.Render(s.Path, "", nil)
	if err != nil {
		return nil, err
	}

	root, err := homedir.Expand(rendered)
	if err != nil {
		return nil, fmt.Errorf("expand stow path %q: %w", rendered, err)
	}

	pkg := s.Package
	if pkg == "" {
		pkg = path.Base(binding.Release)
	}

	in := &Installer{
		Base:     action.NewBase(binding),
		root:     filepath.Clean(root),
		pkgDir:   filepath.Join(root, packagesDirName),
		pkg:      pkg,
		activate: s.Activate == nil || *s.Activate,
	}

	if !in.activate {
		return in, nil
	}

	candidates := s.Stow
	if len(candidates) == 0 {
		candidates = []string{"stow", "xstow"}
	}

	in.executable, err = findExecutable(candidates)
	if err != nil {
		return nil, err
	}

	return in, nil
}

func findExecutable(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if resolved, err := exec.LookPath(candidate); err == nil {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%w among %s", errNoExecutable, strings.Join(candidates, ", "))
}

// PackageDir returns the directory holding every installed version.
func (in *Installer) PackageDir() string {
	return in.pkgDir
}

// versionDirName keeps the version as written unless it is a short form,
// which localVersions would not read back.
func (in *Installer) versionDirName(v release.Version) string {
	if _, err := release.ParseStrictVersion(v.String()); err != nil {
		return in.pkg + "-" + v.Normalized()
	}

	return in.pkg + "-" + v.String()
}

// localVersions lists the versions present in the packages directory.
// Directory suffixes must be complete versions, so "tool-1-2.0.0" belongs to
// package "tool-1" and is ignored for package "tool".
func (in *Installer) localVersions(ctx context.Context) ([]release.Version, error) {
	entries, err := os.ReadDir(in.pkgDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read stow directory: %w", err)
	}

	prefix := in.pkg + "-"
	versions := make([]release.Version, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		v, err := release.ParseStrictVersion(strings.TrimPrefix(entry.Name(), prefix))
		if err != nil {
			logger.DebugKV(ctx, "Ignoring stow directory", "directory", entry.Name(), "error", err)

			continue
		}

		versions = append(versions, v)
	}

	return versions, nil
}

// InstalledVersion returns the greatest version present in the packages directory.
func (in *Installer) InstalledVersion(ctx context.Context) (release.Version, error) {
	versions, err := in.localVersions(ctx)
	if err != nil {
		return release.None, err
	}

	return release.Max(versions...), nil
}

// Install copies dir into a new version directory and activates it.
func (in *Installer) Install(ctx context.Context, dir string, version release.Version) error {
	if version.IsNone() {
		return errNoVersion
	}

	target := filepath.Join(in.pkgDir, in.versionDirName(version))

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", errVersionExists, target)
	}

	if err := os.MkdirAll(in.pkgDir, dirMode); err != nil {
		return fmt.Errorf("create stow directory: %w", err)
	}

	if err := os.CopyFS(target, os.DirFS(dir)); err != nil {
		return fmt.Errorf("copy %s to %s: %w", dir, target, err)
	}

	logger.InfoKV(ctx, "Copied release", "path", target)

	if !in.activate {
		return nil
	}

	versions, err := in.localVersions(ctx)
	if err != nil {
		return err
	}

	versions = slices.DeleteFunc(versions, version.Equal)

	for _, v := range versions {
		if err = in.run(ctx, "-D", in.versionDirName(v)); err != nil {
			return err
		}
	}

	return in.run(ctx, in.versionDirName(version))
}

func (in *Installer) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, in.executable, args...)
	cmd.Dir = in.pkgDir

	logger.DebugKV(ctx, "Running stow", "executable", in.executable, "args", args, "dir", in.pkgDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", filepath.Base(in.executable), strings.Join(args, " "),
			err, strings.TrimSpace(string(out)))
	}

	return nil
}
