// Package main is the banners server and its operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/banners/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "banners",
		Short:         "Banner records console",
		Long:          "banners serves the operator console: sign in, upload a banner image, save the record.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "banners: %v\n", err)
		os.Exit(1)
	}
}
