package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the callback and catalog HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}
		if host, _ := cmd.Flags().GetString("host"); cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}

		// Run blocks until SIGINT or SIGTERM.
		fx.New(coreModules(cfg), server.Module).Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().String("host", "", "Host to bind (overrides server.host)")
}
