package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/export"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/spf13/cobra"
)

var (
	exDB  string
	exOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a loaded database to CSV parts and write the species list",
	RunE:  runExport,
}

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "Write the distinct common/scientific name pairs of a database",
	RunE:  runSpecies,
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, speciesCmd} {
		c.Flags().StringVar(&exDB, "db", "", "SQLite database file (default: storage config)")
		c.Flags().StringVar(&exOut, "out", "", "output directory")
		_ = c.MarkFlagRequired("out")
		rootCmd.AddCommand(c)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openExisting(cfg, exDB)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if err := os.MkdirAll(exOut, 0700); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := observability.NewMetrics(nil)
	defer writeMetrics(cfg, m)

	slog.Info("exporting database", "out", exOut, "rows_per_file", cfg.Export.RowsPerFile)
	return exportAll(ctx, cfg, s, exOut, speciesPath(exOut, time.Now()), m, cmd.OutOrStdout())
}

func runSpecies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openExisting(cfg, exDB)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if err := os.MkdirAll(exOut, 0700); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	path := speciesPath(exOut, time.Now())
	n, err := export.WriteSpecies(cmd.Context(), s, path)
	if err != nil {
		return err
	}
	printer.Fprintf(cmd.OutOrStdout(), "Unique bird names (%d) saved to: %s\n", n, path)
	return nil
}

func speciesPath(dir string, now time.Time) string {
	return filepath.Join(dir, "unique_bird_names_"+now.Format(stampLayout)+".csv")
}
