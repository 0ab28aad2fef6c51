// Package loader streams parsed eBird rows into the observation store in
// bounded batches.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 10000

// Inserter is the part of the store the loader writes to.
type Inserter interface {
	BulkInsert(ctx context.Context, batch []ebird.Observation) error
}

// RejectHandler is called for every rejected row the policy reports.
type RejectHandler func(*ebird.RowError)

// Result summarizes one load. After a failed load it still describes
// what was committed before the failure.
type Result struct {
	RunID    string
	Rows     int64 // data rows read, accepted or not
	Accepted int64
	Rejected int64
	Inserted int64
	Batches  int
	Duration time.Duration
}

// Loader moves rows from an input file into an Inserter.
type Loader struct {
	store     Inserter
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	onReject  RejectHandler
}

// Option configures a Loader.
type Option func(*Loader)

// WithBatchSize sets the rows per batch. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithClock sets the clock used for durations.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loader) { l.clock = c }
}

// WithRejectHandler replaces the default handler, which logs a warning.
func WithRejectHandler(h RejectHandler) Option {
	return func(l *Loader) { l.onReject = h }
}

// New creates a Loader writing to s.
func New(s Inserter, opts ...Option) *Loader {
	l := &Loader{
		store:     s,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = observability.NewMetrics(nil)
	}
	if l.onReject == nil {
		l.onReject = func(re *ebird.RowError) {
			l.logger.Warn("skipping invalid row",
				"line", re.Line,
				"field", re.Field,
				"reason", re.Reason,
				"row", re.Raw,
			)
		}
	}
	return l
}

// Load parses r under policy p and commits accepted rows in batches, in
// file order. Parsing runs at most two batches ahead of the store.
//
// A read or insert failure stops the load. Batches committed before the
// failure stay in the store and are counted in the returned Result.
func (l *Loader) Load(ctx context.Context, r io.Reader, p ebird.Policy) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	start := l.clock.Now()
	logger := l.logger.With("run_id", res.RunID)

	reader, err := ebird.NewReader(r, p)
	if err != nil {
		return res, fmt.Errorf("opening input: %w", err)
	}

	batches := make(chan []ebird.Observation, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return l.produce(gctx, reader, p, batches, &res)
	})

	g.Go(func() error {
		for batch := range batches {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := res.Batches + 1
			began := l.clock.Now()
			if err := l.store.BulkInsert(gctx, batch); err != nil {
				return fmt.Errorf("inserting batch %d: %w", n, err)
			}
			res.Batches = n
			res.Inserted += int64(len(batch))

			l.metrics.BatchSize.Observe(float64(len(batch)))
			l.metrics.BatchInsertDuration.Observe(l.clock.Since(began).Seconds())
			l.metrics.RowsInserted.Add(float64(len(batch)))
			logger.Info("batch committed", "batch", n, "rows", len(batch), "inserted", res.Inserted)
		}
		return nil
	})

	err = g.Wait()
	res.Duration = l.clock.Since(start)
	l.metrics.LoadDuration.Observe(res.Duration.Seconds())

	if err != nil {
		logger.Error("load aborted",
			"error", err,
			"rows", res.Rows,
			"inserted", res.Inserted,
			"batches", res.Batches,
		)
		return res, err
	}

	logger.Info("load complete",
		"rows", res.Rows,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"batches", res.Batches,
		"duration", res.Duration,
	)
	return res, nil
}

// produce reads every row, counts it, and sends full batches downstream.
// Only this goroutine writes the row counters of res.
func (l *Loader) produce(ctx context.Context, reader *ebird.Reader, p ebird.Policy, out chan<- []ebird.Observation, res *Result) error {
	send := func(batch []ebird.Observation) error {
		select {
		case out <- batch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	batch := make([]ebird.Observation, 0, l.batchSize)
	for {
		if res.Rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		obs, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *ebird.RowError
		if errors.As(err, &re) {
			res.Rows++
			res.Rejected++
			l.metrics.RowsRead.Inc()
			l.metrics.RowsRejected.WithLabelValues(re.Field).Inc()
			if p.ReportRejects {
				l.onReject(re)
			}
			continue
		}
		if err != nil {
			return err
		}

		res.Rows++
		res.Accepted++
		l.metrics.RowsRead.Inc()
		batch = append(batch, obs)

		if len(batch) == l.batchSize {
			if err := send(batch); err != nil {
				return err
			}
			batch = make([]ebird.Observation, 0, l.batchSize)
		}
	}

	if len(batch) > 0 {
		return send(batch)
	}
	return nil
}
