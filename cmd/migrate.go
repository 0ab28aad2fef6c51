package cmd

import (
	"log/slog"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/spf13/cobra"
)

var (
	dryRun    bool
	migrateDB string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	migrateCmd.Flags().StringVar(&migrateDB, "db", "", "SQLite database file (default: storage config)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if migrateDB != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLite.Path = migrateDB
	}
	if err := requireDSN(cfg); err != nil {
		return err
	}

	if dryRun {
		slog.Info("dry run mode, showing pending migrations")
		current, latest, err := store.MigrationStatus(cfg.Storage.Driver, cfg.DSN())
		if err != nil {
			return err
		}
		slog.Info("migration status",
			"current_version", current,
			"latest_version", latest,
			"pending", latest-current,
			"driver", cfg.Storage.Driver,
		)
		return nil
	}

	// Opening the store automatically runs migrations.
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	slog.Info("migrations complete")
	return nil
}
