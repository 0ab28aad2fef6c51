package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/config"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/export"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/loader"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/spf13/cobra"
)

var loadExport bool

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load an eBird extract into a new database",
	Long: `load creates the run directory <file>_<YYYYMMDD_HHMMSS>, loads every valid row
of the extract into bird_sightings, and (by default for the regional profile)
exports the table to CSV parts and writes the species list.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadExport, "export", true, "export CSV parts and the species list after loading (default on for the regional profile)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	withExport := cfg.ParsedProfile() == ebird.ProfileRegional
	if cmd.Flags().Changed("export") {
		withExport = loadExport
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := observability.NewMetrics(nil)
	r, err := ingest(ctx, cfg, cleanPath(args[0]), withExport, m, cmd.OutOrStdout())
	writeMetrics(cfg, m)
	if err != nil {
		return err
	}
	defer r.store.Close() //nolint:errcheck

	fmt.Fprintf(cmd.OutOrStdout(), "\nResults are stored in: %s\n", r.paths.Dir)
	return nil
}

// run is one completed load with its store still open.
type run struct {
	paths  runPaths
	store  store.Store
	result loader.Result
}

// ingest creates the run directory, loads input into the configured store
// and optionally exports it. The caller closes the returned store.
func ingest(ctx context.Context, cfg *config.Config, input string, withExport bool, m *observability.Metrics, w io.Writer) (*run, error) {
	paths := newRunPaths(input, cfg.Output.Dir, cfg.ParsedProfile(), time.Now())

	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := os.MkdirAll(paths.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	slog.Info("output directory created", "path", paths.Dir)

	if cfg.Storage.Driver == "sqlite" && cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = paths.DB
	}
	paths.DB = displayDSN(cfg)

	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("processing input", "path", input, "profile", cfg.Profile, "batch_size", cfg.Ingest.BatchSize)
	l := loader.New(s,
		loader.WithBatchSize(cfg.Ingest.BatchSize),
		loader.WithLogger(slog.Default()),
		loader.WithMetrics(m),
	)
	res, err := l.Load(ctx, f, cfg.Policy())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	renderLoad(w, res, paths.DB)

	if withExport {
		if err := exportAll(ctx, cfg, s, paths.Dir, paths.Species, m, w); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return &run{paths: paths, store: s, result: res}, nil
}

// exportAll writes the CSV parts into dir and the species list to speciesPath.
func exportAll(ctx context.Context, cfg *config.Config, s store.Store, dir, speciesPath string, m *observability.Metrics, w io.Writer) error {
	heading(w, "Exporting full database to CSV in parts")
	e := export.New(s, dir,
		export.WithRowsPerFile(cfg.Export.RowsPerFile),
		export.WithLogger(slog.Default()),
		export.WithMetrics(m),
	)
	res, err := e.Export(ctx)
	renderExport(w, res)
	if err != nil {
		return err
	}

	n, err := export.WriteSpecies(ctx, s, speciesPath)
	if err != nil {
		return err
	}
	printer.Fprintf(w, "Unique bird names (%d) saved to: %s\n", n, speciesPath)
	return nil
}

func writeMetrics(cfg *config.Config, m *observability.Metrics) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		slog.Error("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
	}
}
