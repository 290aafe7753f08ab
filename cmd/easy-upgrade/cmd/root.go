package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/telemetry"
	"github.com/cogniteev/easy-upgrade/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath   string
	verbosity    int
	logLevel     string
	otlpEndpoint string
	otlpInsecure bool
}

// newRootCommand builds the command tree. Tests build their own tree so
// flags never leak between runs. The returned function flushes telemetry
// and must be called once the command returns, whatever its outcome.
func newRootCommand() (*cobra.Command, func(context.Context) error) {
	flags := &globalFlags{}

	var shutdown telemetry.ShutdownFunc

	root := &cobra.Command{
		Use:   "easy-upgrade",
		Short: "Keep locally installed software up to date with its upstream releases.",
		Long: `easy-upgrade compares the installed version of every configured release
with the latest version published upstream and, when it is newer, fetches,
installs and post-processes it through the actions named in the configuration.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logger.LevelFromVerbosity(flags.verbosity)

			if flags.logLevel != "" {
				parsed, ok := logger.ParseLogLevel(flags.logLevel)
				if !ok {
					return fmt.Errorf("%w: %q", errUnknownLogLevel, flags.logLevel)
				}

				level = parsed
			}

			logger.SetLevel(level)

			var err error

			shutdown, err = telemetry.Setup(cmd.Context(), telemetry.Options{
				Endpoint: flags.otlpEndpoint,
				Insecure: flags.otlpInsecure,
			})

			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to configuration file (default $XDG_CONFIG_HOME/easy_upgrade/config.yml)")
	pf.CountVarP(&flags.verbosity, "verbose", "v", "verbose mode, enables debug logs")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides -v)")
	pf.StringVar(&flags.otlpEndpoint, "otlp-endpoint", os.Getenv(telemetry.EndpointEnv), "OTLP gRPC endpoint receiving traces and metrics")
	pf.BoolVar(&flags.otlpInsecure, "otlp-insecure", false, "disable TLS towards the OTLP endpoint")

	root.AddCommand(
		newListCommand(flags),
		newInstallCommand(flags),
		newActionsCommand(),
	)

	version.AttachCobraVersionCommand(root)

	flush := func(ctx context.Context) error {
		if shutdown == nil {
			return nil
		}

		return shutdown(ctx)
	}

	return root, flush
}

// Execute runs the easy-upgrade CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	root, flush := newRootCommand()
	err := root.ExecuteContext(ctx)

	stop()

	// The command context may already be canceled by a signal.
	if flushErr := flush(context.WithoutCancel(ctx)); flushErr != nil {
		logger.Warnf(ctx, "Could not flush telemetry: %v", flushErr)
	}

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}
