package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/traildiary/traildiary/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Opens (and migrates) the database and serves the JSON API until
SIGINT or SIGTERM. JWT_SECRET must be set to at least 16 characters:

  JWT_SECRET=$(openssl rand -hex 32) traildiary serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		if err := ensureDir(cfg.DBPath); err != nil {
			return err
		}

		logger := newLogger(cfg)
		srv, err := server.New(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("failed to create server", slog.String("error", err.Error()))
			return err
		}
		// Start blocks until the server is shut down.
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
}
