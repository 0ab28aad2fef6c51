package cmd

import (
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/analysis"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/spf13/cobra"
)

var (
	anDB         string
	anSpecies    string
	anScientific bool
	anFilter     store.Filter
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report yearly trend, best month, breeding status and top locations for a species",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&anDB, "db", "", "SQLite database file (default: storage config)")
	analyzeCmd.Flags().StringVar(&anSpecies, "species", "", "species name, matched exactly")
	analyzeCmd.Flags().BoolVar(&anScientific, "scientific", false, "match --species against the scientific name")
	analyzeCmd.Flags().StringVar(&anFilter.Country, "country", "", "restrict to a country")
	analyzeCmd.Flags().StringVar(&anFilter.State, "state", "", "restrict to a state")
	analyzeCmd.Flags().StringVar(&anFilter.County, "county", "", "restrict to a county")
	_ = analyzeCmd.MarkFlagRequired("species")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openExisting(cfg, anDB)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	e := analysis.NewEngine(s, cfg.ParsedProfile(), observability.NewMetrics(nil))
	rep, err := e.Analyze(cmd.Context(), store.Query{
		Species: store.SpeciesKey{Name: anSpecies, Scientific: anScientific},
		Filter:  anFilter,
	})
	if err != nil {
		return err
	}

	renderReport(cmd.OutOrStdout(), rep)
	return nil
}
