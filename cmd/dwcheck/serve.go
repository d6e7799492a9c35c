package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dwcheck/internal/web"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP validation server",
		Long: `Serve exposes POST /api/validate, GET /api/tables and GET /healthz on
SERVER_HOST:SERVER_PORT until interrupted. In-flight runs are allowed to
finish within SERVER_SHUTDOWN_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.logger.Info("configuration loaded", "config", c.cfg.String())
			return web.NewServer(c.runner).Run(cmd.Context())
		},
	}
}
