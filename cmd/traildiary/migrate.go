package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/traildiary/traildiary/internal/repository/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := ensureDir(cfg.DBPath); err != nil {
			return err
		}

		db, err := sqlite.New(cmd.Context(), cfg.DBPath, newLogger(cfg))
		if err != nil {
			return err
		}
		defer db.Close()

		version, err := db.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", cfg.DBPath, version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the schema version without migrating",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := sqlite.Open(cmd.Context(), cfg.DBPath, newLogger(cfg))
		if err != nil {
			return err
		}
		defer db.Close()

		version, err := db.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.DBPath, version)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}
