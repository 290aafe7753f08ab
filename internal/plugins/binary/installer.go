package binary

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-homedir"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/repository/state"
)

// ActionName is the key of the installer in release configuration.
const ActionName = "binary"

const (
	// DefaultMode is the mode of the installed executable.
	DefaultMode os.FileMode = 0o755

	checksumFunction = crypto.SHA512
	stateFileSuffix  = ".easy-upgrade.json"
	dirMode          = 0o755
)

var (
	errNoTarget        = errors.New("target is required")
	errInvalidMode     = errors.New("mode must be an octal permission")
	errAmbiguousSource = errors.New("workspace must hold exactly one file when source is not set")
	errUnsafeSource    = errors.New("source must be a path inside the workspace")
	errNoVersion       = errors.New("cannot install an empty version")
)

type settings struct {
	Target    string `mapstructure:"target"`
	Source    string `mapstructure:"source"`
	Mode      string `mapstructure:"mode"`
	StateFile string `mapstructure:"state-file"`
}

// Installer replaces one executable with the fetched file.
type Installer struct {
	action.Base

	target string
	source string
	mode   os.FileMode
	state  state.Repository
}

// NewInstaller builds an Installer from its binding.
func NewInstaller(binding *action.Binding) (*Installer, error) {
	var s settings
	if err := binding.Config.DecodeStrict(&s); err != nil {
		return nil, fmt.Errorf("binary settings: %w", err)
	}

	if s.Target == "" {
		return nil, errNoTarget
	}

	target, err := expand(binding, s.Target)
	if err != nil {
		return nil, err
	}

	mode, err := parseMode(s.Mode)
	if err != nil {
		return nil, err
	}

	stateFile := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+stateFileSuffix)
	if s.StateFile != "" {
		if stateFile, err = expand(binding, s.StateFile); err != nil {
			return nil, err
		}
	}

	return &Installer{
		Base:   action.NewBase(binding),
		target: target,
		source: s.Source,
		mode:   mode,
		state:  state.NewFileRepository(stateFile),
	}, nil
}

func expand(binding *action.Binding, text string) (string, error) {
	rendered, err := binding.Render(text, "", nil)
	if err != nil {
		return "", err
	}

	expanded, err := homedir.Expand(rendered)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", rendered, err)
	}

	return filepath.Clean(expanded), nil
}

// parseMode reads an octal permission such as "755", "0755" or "0o755".
func parseMode(s string) (os.FileMode, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0o")
	if s == "" {
		return DefaultMode, nil
	}

	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil || mode > uint64(fs.ModePerm) {
		return 0, fmt.Errorf("%w: %q", errInvalidMode, s)
	}

	return os.FileMode(mode), nil
}

// Target returns the path of the managed executable.
func (in *Installer) Target() string {
	return in.target
}

// InstalledVersion reads the install record. A missing record or a missing
// target means nothing is installed.
func (in *Installer) InstalledVersion(ctx context.Context) (release.Version, error) {
	if _, err := os.Stat(in.target); errors.Is(err, os.ErrNotExist) {
		return release.None, nil
	}

	record, err := in.state.Load(ctx)
	if errors.Is(err, state.ErrNotFound) {
		logger.DebugKV(ctx, "No install record", "target", in.target)

		return release.None, nil
	}

	if err != nil {
		return release.None, err
	}

	return record.Version, nil
}

// Install applies the workspace file to the target and records the version.
func (in *Installer) Install(ctx context.Context, dir string, version release.Version) error {
	if version.IsNone() {
		return errNoVersion
	}

	source, err := in.sourcePath(dir, version)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("read fetched file: %w", err)
	}

	checksum := sha512.Sum512(data)

	if err = os.MkdirAll(filepath.Dir(in.target), dirMode); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	// go-update renames the current target aside first, so it has to exist.
	if _, err = os.Stat(in.target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.Create(in.target); err != nil {
			return fmt.Errorf("create target: %w", err)
		}

		_ = placeholder.Close()
	}

	logger.DebugKV(ctx, "Applying update", "source", source, "target", in.target)

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: in.target,
		TargetMode: in.mode,
		Checksum:   checksum[:],
		Hash:       checksumFunction,
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", in.target, err)
	}

	if err = os.Chmod(in.target, in.mode); err != nil {
		return fmt.Errorf("chmod %s: %w", in.target, err)
	}

	oldFileName := in.target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	record := &release.InstallRecord{
		Release:     in.Binding().Release,
		Version:     version,
		Checksum:    base64.StdEncoding.EncodeToString(checksum[:]),
		InstalledAt: time.Now().UTC(),
	}

	if err = in.state.Save(ctx, record); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installed executable", "target", in.target, "version", version.String())

	return nil
}

// sourcePath resolves the file to install inside the workspace.
func (in *Installer) sourcePath(dir string, version release.Version) (string, error) {
	if in.source != "" {
		rel, err := in.Binding().Render(in.source, version.String(), nil)
		if err != nil {
			return "", err
		}

		rel = filepath.FromSlash(rel)
		if !filepath.IsLocal(rel) {
			return "", fmt.Errorf("%w: %q", errUnsafeSource, rel)
		}

		return filepath.Join(dir, rel), nil
	}

	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan workspace: %w", err)
	}

	if len(files) != 1 {
		return "", fmt.Errorf("%w, found %d", errAmbiguousSource, len(files))
	}

	return files[0], nil
}
