package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
)

// Store defines the interface for observation storage.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	// BulkInsert appends a batch of observations in a single transaction.
	// Either every row of the batch becomes visible or none does.
	BulkInsert(ctx context.Context, batch []ebird.Observation) error

	// YearlyTotals returns summed counts grouped by year, ascending.
	YearlyTotals(ctx context.Context, q Query) ([]YearTotal, error)

	// MonthlyTotals returns summed counts for months 1-12, largest total
	// first and lowest month first among equal totals.
	MonthlyTotals(ctx context.Context, q Query) ([]MonthTotal, error)

	// BreedingEvidence reports whether any matching row carries a breeding
	// category other than the empty string and ebird.BreedingPlaceholder,
	// whichever profile loaded the rows.
	BreedingEvidence(ctx context.Context, q Query) (bool, error)

	// TopLocations ranks locations by summed count, at most limit entries.
	TopLocations(ctx context.Context, q Query, mode LocationMode, limit int) ([]LocationTotal, error)

	// Export scans every row in insertion order. Each call starts a new scan.
	Export(ctx context.Context) iter.Seq2[Sighting, error]

	// Species yields the distinct (common, scientific) name pairs.
	Species(ctx context.Context) iter.Seq2[ebird.Species, error]

	// Stats summarizes the table contents.
	Stats(ctx context.Context) (Stats, error)

	// Close closes the database connection.
	Close() error
}

// Sighting is a stored observation with its surrogate key.
type Sighting struct {
	ID int64
	ebird.Observation
}

// YearTotal is the summed count for one year.
type YearTotal struct {
	Year  int
	Total int64
}

// MonthTotal is the summed count for one calendar month.
type MonthTotal struct {
	Month int
	Total int64
}

// LocationTotal is one ranked location. Label is set in LocationLabel
// mode; the separate fields are set in LocationFields mode.
type LocationTotal struct {
	Label    string
	Locality string
	State    string
	County   string
	Country  string
	Total    int64
}

// LocationMode selects how rows are grouped into locations.
type LocationMode int

const (
	// LocationLabel groups by "locality, county, state" as one string.
	LocationLabel LocationMode = iota
	// LocationFields groups by locality, state, county and country.
	LocationFields
)

// Stats summarizes the observation table.
type Stats struct {
	Rows    int64
	Species int64
	MinYear int
	MaxYear int
}

// SpeciesKey identifies the species a query is about.
type SpeciesKey struct {
	Name string
	// Scientific selects the scientific_name column instead of common_name.
	Scientific bool
}

func (k SpeciesKey) column() string {
	if k.Scientific {
		return "scientific_name"
	}
	return "common_name"
}

// Query is an immutable description of which rows an aggregate covers.
type Query struct {
	Species SpeciesKey
	Filter  Filter
}

// Open returns the store for driver, running migrations.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
