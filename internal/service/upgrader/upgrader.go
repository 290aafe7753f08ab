package upgrader

import (
	"context"

	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/service/common"
)

// Options are inputs accepted by the install entry point.
type Options struct {
	common.Options

	// References are provider:release names. Empty installs every outdated release.
	References []string
	// MarkerPath overrides DefaultMarkerPath.
	MarkerPath string
}

// Run installs the requested releases. It reports whether every requested
// release was upgraded; false with a nil error means some were already up to date.
func Run(ctx context.Context, opts *Options) (bool, error) {
	ctx = logger.WithName(ctx, "install")

	markerPath := opts.MarkerPath
	if markerPath == "" {
		markerPath = DefaultMarkerPath()
	}

	release, err := acquireMarker(ctx, markerPath)
	if err != nil {
		return false, err
	}

	defer release()

	session, err := common.Open(ctx, &opts.Options)
	if err != nil {
		return false, err
	}

	defer session.Close(ctx)

	upgraded, err := session.Coordinator.Install(ctx, opts.References...)
	if err != nil {
		logger.ErrorKV(ctx, "Install failed", "error", err)

		return false, err
	}

	if upgraded {
		logger.Info(ctx, "Install completed")
	} else {
		logger.Info(ctx, "Install completed, some releases were already up to date")
	}

	return upgraded, nil
}
