package upgrader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

const (
	// MarkerFilename marks that an install is running right now.
	MarkerFilename = "install.marker"
	// MarkerLifetime is the age after which a marker is considered stale.
	MarkerLifetime = time.Hour

	markerDirMode = 0o700
)

var errAlreadyRunning = errors.New("another install is already running")

// DefaultMarkerPath returns the marker location under the XDG state directory.
func DefaultMarkerPath() string {
	return filepath.Join(xdg.StateHome, config.AppDirName, MarkerFilename)
}

// acquireMarker creates the marker, failing if a fresh one exists.
func acquireMarker(ctx context.Context, path string) (func(), error) {
	if info, err := os.Stat(path); err == nil {
		if time.Since(info.ModTime()) <= MarkerLifetime {
			return nil, fmt.Errorf("%w: %s", errAlreadyRunning, path)
		}

		logger.InfoKV(ctx, "The install marker is too old, removing it", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), markerDirMode); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}

	marker, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", errAlreadyRunning, path)
	}

	if err != nil {
		return nil, fmt.Errorf("create marker: %w", err)
	}

	_, _ = marker.WriteString(strconv.Itoa(os.Getpid()))

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close marker: %w", err)
	}

	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Could not remove the install marker", "path", path, "error", err)
		}
	}, nil
}
