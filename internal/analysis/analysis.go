// Package analysis derives per-species trend, seasonality, breeding and
// location reports from the observation store.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/observability"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
	"github.com/jonboulle/clockwork"
)

// NoMonth is the BestMonth of a report with no monthly data.
const NoMonth = 0

// Location caps per geographic scope.
const (
	CountryLocationLimit = 100
	StateLocationLimit   = 25
	CountyLocationLimit  = 10
	GlobalLocationLimit  = 100
)

// Reader is the part of the store the engine queries.
type Reader interface {
	YearlyTotals(ctx context.Context, q store.Query) ([]store.YearTotal, error)
	MonthlyTotals(ctx context.Context, q store.Query) ([]store.MonthTotal, error)
	BreedingEvidence(ctx context.Context, q store.Query) (bool, error)
	TopLocations(ctx context.Context, q store.Query, mode store.LocationMode, limit int) ([]store.LocationTotal, error)
}

// YearChange is the percent change between two adjacent present years.
type YearChange struct {
	From    int
	To      int
	Percent float64
}

// Report holds the five views for one species and filter.
type Report struct {
	Query     store.Query
	Yearly    []store.YearTotal
	Changes   []YearChange
	BestMonth int
	Breeding  bool
	Locations []store.LocationTotal
	Mode      store.LocationMode
	Limit     int
}

// Empty reports whether no row matched the query.
func (r *Report) Empty() bool {
	return len(r.Yearly) == 0
}

// BestMonthName renders BestMonth as a month name, or "N/A".
func (r *Report) BestMonthName() string {
	return MonthName(r.BestMonth)
}

// Engine runs analyses against a store.
type Engine struct {
	store   Reader
	profile ebird.Profile
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewEngine creates an Engine. The profile selects location grouping
// and caps.
func NewEngine(s Reader, profile ebird.Profile, m *observability.Metrics) *Engine {
	if m == nil {
		m = observability.NewMetrics(nil)
	}
	return &Engine{store: s, profile: profile, metrics: m, clock: clockwork.NewRealClock()}
}

// Analyze computes every view for q. A species with no matching rows
// yields an empty report, not an error.
func (e *Engine) Analyze(ctx context.Context, q store.Query) (*Report, error) {
	mode, limit := e.LocationPlan(q.Filter)
	rep := &Report{Query: q, BestMonth: NoMonth, Mode: mode, Limit: limit}

	if err := e.timed("yearly", func() (err error) {
		rep.Yearly, err = e.store.YearlyTotals(ctx, q)
		return err
	}); err != nil {
		return nil, fmt.Errorf("yearly totals: %w", err)
	}
	rep.Changes = PercentChanges(rep.Yearly)

	var months []store.MonthTotal
	if err := e.timed("best_month", func() (err error) {
		months, err = e.store.MonthlyTotals(ctx, q)
		return err
	}); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	rep.BestMonth = BestMonth(months)

	if err := e.timed("breeding", func() (err error) {
		rep.Breeding, err = e.store.BreedingEvidence(ctx, q)
		return err
	}); err != nil {
		return nil, fmt.Errorf("breeding evidence: %w", err)
	}

	if err := e.timed("top_locations", func() (err error) {
		rep.Locations, err = e.store.TopLocations(ctx, q, mode, limit)
		return err
	}); err != nil {
		return nil, fmt.Errorf("top locations: %w", err)
	}

	return rep, nil
}

// LocationPlan returns the grouping mode and cap for a filter.
func (e *Engine) LocationPlan(f store.Filter) (store.LocationMode, int) {
	if e.profile == ebird.ProfileGlobal {
		return store.LocationFields, GlobalLocationLimit
	}
	switch f.Scope() {
	case store.ScopeCounty:
		return store.LocationLabel, CountyLocationLimit
	case store.ScopeState:
		return store.LocationLabel, StateLocationLimit
	default:
		return store.LocationLabel, CountryLocationLimit
	}
}

func (e *Engine) timed(view string, fn func() error) error {
	start := e.clock.Now()
	err := fn()
	e.metrics.AnalysisQueryDuration.WithLabelValues(view).Observe(e.clock.Since(start).Seconds())
	return err
}

// PercentChanges computes the change between each adjacent pair of
// years. A zero baseline yields 0.
func PercentChanges(yearly []store.YearTotal) []YearChange {
	if len(yearly) < 2 {
		return nil
	}
	out := make([]YearChange, 0, len(yearly)-1)
	for i := 1; i < len(yearly); i++ {
		prev, cur := yearly[i-1], yearly[i]
		var pct float64
		if prev.Total != 0 {
			pct = float64(cur.Total-prev.Total) / float64(prev.Total) * 100
		}
		out = append(out, YearChange{From: prev.Year, To: cur.Year, Percent: pct})
	}
	return out
}

// BestMonth picks the month with the largest total, lowest month on ties.
// Months outside 1-12 are ignored.
func BestMonth(months []store.MonthTotal) int {
	best := NoMonth
	var bestTotal int64
	for _, m := range months {
		if m.Month < 1 || m.Month > 12 {
			continue
		}
		if best == NoMonth || m.Total > bestTotal || (m.Total == bestTotal && m.Month < best) {
			best, bestTotal = m.Month, m.Total
		}
	}
	return best
}

// MonthName returns the English name of month m, or "N/A" outside 1-12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return "N/A"
	}
	return time.Month(m).String()
}
