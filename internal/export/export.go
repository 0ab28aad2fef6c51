// Package export writes the observation store back out as CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
)

// DefaultRowsPerFile matches the row limit of common spreadsheet tools.
const DefaultRowsPerFile = 1048576

// Header is the first row of every part file.
var Header = []string{
	"id", "common_name", "scientific_name",
	"locality", "country", "state", "county",
	"observation_date", "year", "month",
	"observation_count", "breeding_category",
}

// SpeciesHeader is the first row of the species list.
var SpeciesHeader = []string{"COMMON NAME", "SCIENTIFIC NAME"}

// Source is the part of the store the exporter scans.
type Source interface {
	Export(ctx context.Context) iter.Seq2[store.Sighting, error]
}

// SpeciesSource lists distinct species.
type SpeciesSource interface {
	Species(ctx context.Context) iter.Seq2[ebird.Species, error]
}

// PartName returns the file name of part n, counting from 1.
func PartName(n int) string {
	return fmt.Sprintf("full_database_part_%d.csv", n)
}

// Result lists the part files written and the data rows they hold.
type Result struct {
	Parts []string
	Rows  int64
}

// Exporter splits a full store scan into bounded CSV part files.
type Exporter struct {
	src         Source
	dir         string
	rowsPerFile int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithRowsPerFile caps the data rows per part. Values below 1 are ignored.
func WithRowsPerFile(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.rowsPerFile = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// New creates an Exporter that writes part files into dir.
func New(src Source, dir string, opts ...Option) *Exporter {
	e := &Exporter{
		src:         src,
		dir:         dir,
		rowsPerFile: DefaultRowsPerFile,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observability.NewMetrics(nil)
	}
	return e
}

type part struct {
	n    int
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

// Export streams every stored row into part files. A new part is opened
// only when another row needs one, so an empty store produces a single
// header-only part. Parts completed before an error are left in place.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	var res Result
	var cur *part
	record := make([]string, len(Header))

	for sg, err := range e.src.Export(ctx) {
		if err != nil {
			cur.abort()
			return res, fmt.Errorf("reading store: %w", err)
		}

		if cur == nil || cur.rows == e.rowsPerFile {
			next := 1
			if cur != nil {
				if err := e.finish(cur, &res); err != nil {
					return res, err
				}
				next = cur.n + 1
			}
			if cur, err = e.open(next); err != nil {
				return res, err
			}
		}

		fillRecord(record, sg)
		if err := cur.w.Write(record); err != nil {
			cur.abort()
			return res, fmt.Errorf("writing part %d: %w", cur.n, err)
		}
		cur.rows++
		res.Rows++
	}

	if cur == nil {
		var err error
		if cur, err = e.open(1); err != nil {
			return res, err
		}
	}
	if err := e.finish(cur, &res); err != nil {
		return res, err
	}

	e.logger.Info("export complete", "dir", e.dir, "parts", len(res.Parts), "rows", res.Rows)
	return res, nil
}

func (e *Exporter) open(n int) (*part, error) {
	path := filepath.Join(e.dir, PartName(n))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating part %d: %w", n, err)
	}
	p := &part{n: n, path: path, f: f, w: csv.NewWriter(f)}
	if err := p.w.Write(Header); err != nil {
		p.abort()
		return nil, fmt.Errorf("writing part %d header: %w", n, err)
	}
	return p, nil
}

func (e *Exporter) finish(p *part, res *Result) error {
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		p.abort()
		return fmt.Errorf("flushing part %d: %w", p.n, err)
	}
	if err := p.f.Close(); err != nil {
		return fmt.Errorf("closing part %d: %w", p.n, err)
	}
	res.Parts = append(res.Parts, p.path)
	e.metrics.ExportPartsWritten.Inc()
	e.metrics.ExportRowsWritten.Add(float64(p.rows))
	e.logger.Info("saved export part", "path", p.path, "rows", p.rows)
	return nil
}

// abort closes the file of a part that will not be completed.
func (p *part) abort() {
	if p == nil {
		return
	}
	_ = p.f.Close()
}

func fillRecord(record []string, sg store.Sighting) {
	record[0] = strconv.FormatInt(sg.ID, 10)
	record[1] = sg.CommonName
	record[2] = sg.ScientificName
	record[3] = sg.Locality
	record[4] = sg.Country
	record[5] = sg.State
	record[6] = sg.County
	record[7] = sg.Date
	record[8] = strconv.Itoa(sg.Year)
	record[9] = strconv.Itoa(sg.Month)
	record[10] = strconv.FormatInt(sg.Count, 10)
	record[11] = sg.BreedingCategory
}

// WriteSpecies writes the distinct species list to path and returns the
// number of species written.
func WriteSpecies(ctx context.Context, src SpeciesSource, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating species file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(SpeciesHeader); err != nil {
		return 0, fmt.Errorf("writing species header: %w", err)
	}

	n := 0
	for sp, err := range src.Species(ctx) {
		if err != nil {
			return n, fmt.Errorf("reading species: %w", err)
		}
		if err := w.Write([]string{sp.CommonName, sp.ScientificName}); err != nil {
			return n, fmt.Errorf("writing species: %w", err)
		}
		n++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return n, fmt.Errorf("flushing species file: %w", err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("closing species file: %w", err)
	}
	return n, nil
}
