package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cogniteev/easy-upgrade/internal/service/common"
	"github.com/cogniteev/easy-upgrade/internal/service/lister"
)

func newListCommand(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outdated packages.",
		Long: `List releases whose upstream candidate is newer than the installed version,
or that are not installed at all. With --all every configured release is listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return lister.Run(cmd.Context(), &lister.Options{
				Options: common.Options{ConfigPath: flags.configPath},
				All:     all,
				Out:     cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list all packages")

	return cmd
}
