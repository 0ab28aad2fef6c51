package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/analysis"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/config"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session [file]",
	Short: "Load an extract and analyze species interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var input string
	if len(args) == 1 {
		input = args[0]
	}
	return newSession(cfg, cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx, input)
}

// session is the prompt-driven load and analysis loop.
type session struct {
	cfg *config.Config
	in  *bufio.Scanner
	out io.Writer
}

func newSession(cfg *config.Config, in io.Reader, out io.Writer) *session {
	return &session{cfg: cfg, in: bufio.NewScanner(in), out: out}
}

func (s *session) run(ctx context.Context, input string) error {
	profile := s.cfg.ParsedProfile()
	if profile == ebird.ProfileGlobal {
		_, _ = color.New(color.FgCyan, color.Bold).Fprintln(s.out, "Welcome to the global bird observation analysis tool.")
		fmt.Fprintln(s.out, "Global extracts are large; loading may take a while.")
	} else {
		_, _ = color.New(color.FgCyan, color.Bold).Fprintln(s.out, "Welcome to the eBird analysis program.")
		fmt.Fprintln(s.out, "It loads an eBird extract and reports trends, seasonality and breeding status per species.")
	}

	if input == "" {
		var err error
		if input, err = s.ask("Enter the path to the eBird TXT file: "); err != nil {
			return err
		}
	}
	input = cleanPath(input)

	m := observability.NewMetrics(nil)
	r, err := ingest(ctx, s.cfg, input, profile == ebird.ProfileRegional, m, s.out)
	writeMetrics(s.cfg, m)
	if err != nil {
		return err
	}
	defer r.store.Close() //nolint:errcheck

	engine := analysis.NewEngine(r.store, profile, m)

	var region store.Filter
	if profile == ebird.ProfileRegional {
		if region, err = s.askRegion(); err != nil {
			return s.done(r, err)
		}
	}

	for {
		q, err := s.askSpecies()
		if err != nil {
			return s.done(r, err)
		}
		q.Filter = region
		if profile == ebird.ProfileGlobal {
			if q.Filter, err = s.askNestedFilter(); err != nil {
				return s.done(r, err)
			}
		}

		rep, err := engine.Analyze(ctx, q)
		if err != nil {
			return err
		}
		renderReport(s.out, rep)

		again, err := s.confirm("\nWould you like to analyze another bird?")
		if err != nil || !again {
			return s.done(r, err)
		}
	}
}

// done ends the session. End of input is a normal exit.
func (s *session) done(r *run, err error) error {
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	fmt.Fprintf(s.out, "\nAnalysis complete! Results are stored in: %s\n", r.paths.Dir)
	return nil
}

func (s *session) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *session) confirm(prompt string) (bool, error) {
	a, err := s.ask(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	a = strings.ToLower(a)
	return a == "yes" || a == "y", nil
}

// askRegion asks once which level the regional dataset covers.
func (s *session) askRegion() (store.Filter, error) {
	kind, err := s.ask("Is this dataset for Country, State, or County? (Enter country/state/county): ")
	if err != nil {
		return store.Filter{}, err
	}
	switch strings.ToLower(kind) {
	case "state":
		v, err := s.ask("Enter the state to analyze: ")
		return store.Filter{State: v}, err
	case "county":
		v, err := s.ask("Enter the county to analyze: ")
		return store.Filter{County: v}, err
	default:
		return store.Filter{}, nil
	}
}

func (s *session) askSpecies() (store.Query, error) {
	var name string
	for name == "" {
		var err error
		if name, err = s.ask("Enter the common or scientific name of the bird: "); err != nil {
			return store.Query{}, err
		}
	}
	kind, err := s.ask("Search by (1) Common Name or (2) Scientific Name? Enter 1 or 2: ")
	if err != nil {
		return store.Query{}, err
	}
	return store.Query{Species: store.SpeciesKey{Name: name, Scientific: kind != "1"}}, nil
}

// askNestedFilter walks country, then state, then county.
func (s *session) askNestedFilter() (store.Filter, error) {
	var f store.Filter
	var err error
	if f.Country, err = s.ask("Enter the country to filter (or press Enter to include all countries): "); err != nil || f.Country == "" {
		return f, err
	}
	ok, err := s.confirm("Would you like to filter by state?")
	if err != nil || !ok {
		return f, err
	}
	if f.State, err = s.ask("Enter the state: "); err != nil {
		return f, err
	}
	ok, err = s.confirm("Would you like to filter further by county?")
	if err != nil || !ok {
		return f, err
	}
	f.County, err = s.ask("Enter the county: ")
	return f, err
}
