package main

import (
	"fmt"

	"github.com/hyperengineering/steward/internal/config"
	"github.com/spf13/cobra"
)

var migrateDBPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Migrate opens the configured database, applies any pending migrations and prints the resulting schema version.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDBPath, "db", "",
		"SQLite database path (overrides config and STEWARD_DB_PATH)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if migrateDBPath != "" {
		cfg.Driver = config.DriverSQLite
		cfg.Path = migrateDBPath
	}

	db, err := openStore(cmd.Context(), *cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := db.SchemaVersion(cmd.Context())
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database %q migrated to schema version %d\n", cfg.Driver, version)
	return nil
}
