package main

import (
	"github.com/spf13/cobra"

	"github.com/garunski/cartridge-fixture/pkg/framework"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reset API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		return framework.Run(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port (default 8081)")
}
