package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/analysis"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/export"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/loader"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func heading(w io.Writer, s string) {
	_, _ = color.New(color.FgYellow, color.Bold).Fprintln(w, "\n"+s)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

func renderLoad(w io.Writer, res loader.Result, db string) {
	heading(w, "Load complete")
	printer.Fprintf(w, "Database:  %s\n", db)
	printer.Fprintf(w, "Rows read: %d\n", res.Rows)
	printer.Fprintf(w, "Inserted:  %d in %d batches\n", res.Inserted, res.Batches)
	printer.Fprintf(w, "Rejected:  %d\n", res.Rejected)
	printer.Fprintf(w, "Duration:  %s\n", res.Duration.Round(time.Millisecond))
}

func renderExport(w io.Writer, res export.Result) {
	printer.Fprintf(w, "Exported %d rows to %d part(s)\n", res.Rows, len(res.Parts))
	for _, p := range res.Parts {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// renderReport prints the five views of rep.
func renderReport(w io.Writer, rep *analysis.Report) {
	name := rep.Query.Species.Name
	_, _ = color.New(color.FgCyan, color.Bold).Fprintf(w, "\nAnalysis for %s", name)
	if f := rep.Query.Filter; f != (store.Filter{}) {
		fmt.Fprintf(w, " (%s)", describeFilter(f))
	}
	fmt.Fprintln(w)

	if rep.Empty() {
		fmt.Fprintf(w, "No observations found for %s.\n", name)
	}

	heading(w, "Yearly Observations")
	t := newTable(w, "Year", "Observations")
	for _, y := range rep.Yearly {
		t.Append([]string{strconv.Itoa(y.Year), printer.Sprintf("%d", y.Total)})
	}
	t.Render()

	heading(w, "Year-over-Year % Changes")
	if len(rep.Changes) == 0 {
		fmt.Fprintln(w, "Fewer than two years of data.")
	} else {
		t = newTable(w, "From", "To", "Change")
		for _, c := range rep.Changes {
			t.Append([]string{strconv.Itoa(c.From), strconv.Itoa(c.To), fmt.Sprintf("%.2f%% change", c.Percent)})
		}
		t.Render()
	}

	heading(w, "Seasonality and Breeding")
	fmt.Fprintf(w, "Best Month to Spot: %s\n", rep.BestMonthName())
	fmt.Fprintf(w, "Breeding Status:    %s\n", yesNo(rep.Breeding))

	heading(w, fmt.Sprintf("Top Locations (up to %d)", rep.Limit))
	if rep.Mode == store.LocationFields {
		t = newTable(w, "Locality", "State", "County", "Country", "Observations")
		for _, l := range rep.Locations {
			t.Append([]string{l.Locality, orNA(l.State), orNA(l.County), l.Country, printer.Sprintf("%d", l.Total)})
		}
	} else {
		t = newTable(w, "Location", "Observations")
		for _, l := range rep.Locations {
			t.Append([]string{l.Label, printer.Sprintf("%d", l.Total)})
		}
	}
	t.Render()
}

func describeFilter(f store.Filter) string {
	var parts []string
	for _, s := range []string{f.County, f.State, f.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
