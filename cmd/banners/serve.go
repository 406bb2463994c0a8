package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/banners/internal/app"
	"github.com/MrSnakeDoc/banners/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Long: `Run the HTTP server. Configuration comes from BANNERS_* environment
variables; an incomplete configuration still starts the server in a
not-ready state so /readyz and /infra can explain what is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	return app.New(config.Load()).Run()
}
