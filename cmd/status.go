package cmd

import (
	"fmt"
	"os"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/spf13/cobra"
)

var statusDB string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize a loaded database",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDB, "db", "", "SQLite database file (default: storage config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openExisting(cfg, statusDB)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	st, err := s.Stats(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ebirdstat %s\n\n", Version)
	fmt.Fprintf(w, "Database: %s (%s)\n", cfg.Storage.Driver, displayDSN(cfg))
	if sq, ok := s.(*store.SQLiteStore); ok {
		if info, err := os.Stat(sq.Path()); err == nil {
			fmt.Fprintf(w, "  Size: %s\n", formatBytes(info.Size()))
		}
	}
	printer.Fprintf(w, "  Observations: %d\n", st.Rows)
	printer.Fprintf(w, "  Species: %d\n", st.Species)
	if st.Rows > 0 {
		fmt.Fprintf(w, "  Years: %d to %d\n", st.MinYear, st.MaxYear)
	}
	return nil
}
