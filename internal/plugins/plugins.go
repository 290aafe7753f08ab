package plugins

import (
	"net/http"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/plugins/binary"
	"github.com/cogniteev/easy-upgrade/internal/plugins/command"
	"github.com/cogniteev/easy-upgrade/internal/plugins/github"
	"github.com/cogniteev/easy-upgrade/internal/plugins/process"
	"github.com/cogniteev/easy-upgrade/internal/plugins/s3"
	"github.com/cogniteev/easy-upgrade/internal/plugins/stow"
)

// Options replace the external endpoints plugins talk to, mostly for tests.
type Options struct {
	HTTPClient *http.Client
	S3         s3.ClientFactory
	Processes  process.Lister
	Kill       process.Killer
}

// All returns every built-in plugin.
func All(opts Options) []action.Plugin {
	return []action.Plugin{
		github.Plugin{HTTPClient: opts.HTTPClient},
		s3.Plugin{NewAPI: opts.S3},
		stow.Plugin{},
		binary.Plugin{},
		command.Plugin{},
		process.Plugin{List: opts.Processes, Kill: opts.Kill},
	}
}

// RegisterAll registers every built-in plugin into reg.
func RegisterAll(reg *action.Registry, opts Options) error {
	return action.RegisterPlugins(reg, All(opts)...)
}
