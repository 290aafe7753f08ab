package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cogniteev/easy-upgrade/internal/plugins"
	"github.com/cogniteev/easy-upgrade/internal/service/common"
)

func newActionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the actions available in configuration files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := common.NewRegistry(plugins.Options{})
			if err != nil {
				return err
			}

			data := pterm.TableData{{"ROLE", "NAME", "PROVIDERS"}}
			for _, d := range reg.Descriptors() {
				data = append(data, []string{d.Role.String(), d.Name, d.Providers.String()})
			}

			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return fmt.Errorf("render actions: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)

			return err
		},
	}
}
