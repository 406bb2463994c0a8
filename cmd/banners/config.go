package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/banners/internal/config"
)

func newConfigCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved service descriptor",
		Long: `Print the service descriptor resolved from the environment as JSON.
Secrets are never printed. With --check the command fails when the
descriptor is not ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := config.Resolve(config.Load())
			fmt.Fprintln(cmd.OutOrStdout(), desc.JSON())
			if check && !desc.Ready {
				return desc.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Exit non-zero when the configuration is incomplete")
	return cmd
}
