package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cogniteev/easy-upgrade/internal/service/common"
	"github.com/cogniteev/easy-upgrade/internal/service/upgrader"
)

func newInstallCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install [provider:release ...]",
		Short: "Install outdated package(s).",
		Long: `Install every outdated release, or only the given ones.

Releases are named provider:release, split at the first colon, so release
names may contain colons themselves. Every name is checked before anything
is installed. Installation stops at the first failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := upgrader.Run(cmd.Context(), &upgrader.Options{
				Options:    common.Options{ConfigPath: flags.configPath},
				References: args,
			})

			return err
		},
	}
}
