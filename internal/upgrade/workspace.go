package upgrade

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cogniteev/easy-upgrade/internal/logger"
)

const workspacePrefix = "easy-upgrade-"

// workspace is the temporary directory one pipeline run stages artifacts in.
type workspace struct {
	dir  string
	keep bool
}

func newWorkspace(baseDir, releaseName string, keep bool) (*workspace, error) {
	pattern := workspacePrefix + strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(releaseName) + "-"

	dir, err := os.MkdirTemp(baseDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &workspace{dir: dir, keep: keep}, nil
}

// remove deletes the directory unless it is kept. Failures are logged only.
func (w *workspace) remove(ctx context.Context) {
	if w.keep {
		logger.InfoKV(ctx, "Keeping workspace", "path", w.dir)

		return
	}

	if err := os.RemoveAll(w.dir); err != nil {
		logger.WarnKV(ctx, "Failed to remove workspace", "path", w.dir, "error", err)
	}
}
