// Command traildiary runs the travel diary server and a few local
// maintenance commands.
//
// COMMANDS:
//
//	traildiary serve              run the HTTP API
//	traildiary migrate [status]   bring the schema up to date, or report it
//	traildiary login <id>         verify an account and store the session
//	traildiary logout | whoami    manage the stored session
//
// Every command reads the same configuration: defaults, then the file
// named by --config, then environment variables, then flags.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/traildiary/traildiary/internal/config"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:           "traildiary",
	Short:         "A travel diary backed by SQLite",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (overrides config)")

	rootCmd.AddCommand(serveCmd, migrateCmd, loginCmd, logoutCmd, whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies --config and --db on top of defaults and env.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	// Validate already rejected unknown levels.
	level, _ := config.ParseLevel(cfg.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ensureDir creates the directory that will hold path. SQLite creates the
// file itself but not its parent.
func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
