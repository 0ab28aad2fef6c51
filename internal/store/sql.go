package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
)

const insertSighting = `
	INSERT INTO bird_sightings (
		common_name, scientific_name,
		locality, country, state, county,
		observation_date, year, month,
		observation_count, breeding_category
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sightingColumns = `id, common_name, scientific_name,
	locality, country, state, county,
	observation_date, year, month,
	observation_count, breeding_category`

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends.
// Queries are written with ? placeholders and rebound for postgres.
type sqlStore struct {
	db      *sql.DB
	dialect string
}

// DB returns the underlying database connection for migration commands.
func (s *sqlStore) DB() *sql.DB {
	return s.db
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) rebind(query string) string {
	if s.dialect == "postgres" {
		return replacePlaceholders(query)
	}
	return query
}

func (s *sqlStore) BulkInsert(ctx context.Context, batch []ebird.Observation) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is harmless

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSighting))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, o := range batch {
		if _, err := stmt.ExecContext(ctx,
			o.CommonName, o.ScientificName,
			o.Locality, o.Country, o.State, o.County,
			o.Date, o.Year, o.Month,
			o.Count, o.BreedingCategory,
		); err != nil {
			return fmt.Errorf("inserting sighting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *sqlStore) YearlyTotals(ctx context.Context, q Query) ([]YearTotal, error) {
	where, args := q.where()
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT year, CAST(SUM(observation_count) AS BIGINT) AS total
		FROM bird_sightings
		`+where+`
		GROUP BY year
		ORDER BY year`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying yearly totals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []YearTotal
	for rows.Next() {
		var yt YearTotal
		if err := rows.Scan(&yt.Year, &yt.Total); err != nil {
			return nil, fmt.Errorf("scanning yearly total: %w", err)
		}
		out = append(out, yt)
	}
	return out, rows.Err()
}

func (s *sqlStore) MonthlyTotals(ctx context.Context, q Query) ([]MonthTotal, error) {
	where, args := q.where("month BETWEEN 1 AND 12")
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT month, CAST(SUM(observation_count) AS BIGINT) AS total
		FROM bird_sightings
		`+where+`
		GROUP BY month
		ORDER BY total DESC, month ASC`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying monthly totals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, fmt.Errorf("scanning monthly total: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (s *sqlStore) BreedingEvidence(ctx context.Context, q Query) (bool, error) {
	where, args := q.where("breeding_category <> ''", "breeding_category <> ?")
	args = append(args, ebird.BreedingPlaceholder)

	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT 1 FROM bird_sightings
		`+where+`
		LIMIT 1`), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying breeding evidence: %w", err)
	}
	return true, nil
}

func (s *sqlStore) TopLocations(ctx context.Context, q Query, mode LocationMode, limit int) ([]LocationTotal, error) {
	if limit <= 0 {
		return nil, nil
	}
	where, args := q.where()
	args = append(args, limit)

	var query string
	switch mode {
	case LocationLabel:
		query = `
			SELECT locality || ', ' || county || ', ' || state AS location,
				CAST(SUM(observation_count) AS BIGINT) AS total
			FROM bird_sightings
			` + where + `
			GROUP BY location
			ORDER BY total DESC, location ASC
			LIMIT ?`
	case LocationFields:
		query = `
			SELECT locality, state, county, country,
				CAST(SUM(observation_count) AS BIGINT) AS total
			FROM bird_sightings
			` + where + `
			GROUP BY locality, state, county, country
			ORDER BY total DESC, locality ASC, state ASC, county ASC, country ASC
			LIMIT ?`
	default:
		return nil, fmt.Errorf("unknown location mode %d", mode)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying top locations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []LocationTotal
	for rows.Next() {
		var lt LocationTotal
		var err error
		if mode == LocationLabel {
			err = rows.Scan(&lt.Label, &lt.Total)
		} else {
			err = rows.Scan(&lt.Locality, &lt.State, &lt.County, &lt.Country, &lt.Total)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (s *sqlStore) Export(ctx context.Context) iter.Seq2[Sighting, error] {
	return func(yield func(Sighting, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT `+sightingColumns+` FROM bird_sightings ORDER BY id`)
		if err != nil {
			yield(Sighting{}, fmt.Errorf("querying sightings: %w", err))
			return
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			sg, err := scanSighting(rows)
			if err != nil {
				yield(Sighting{}, err)
				return
			}
			if !yield(sg, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Sighting{}, fmt.Errorf("iterating sightings: %w", err))
		}
	}
}

func (s *sqlStore) Species(ctx context.Context) iter.Seq2[ebird.Species, error] {
	return func(yield func(ebird.Species, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT DISTINCT common_name, scientific_name
			FROM bird_sightings
			ORDER BY common_name, scientific_name`)
		if err != nil {
			yield(ebird.Species{}, fmt.Errorf("querying species: %w", err))
			return
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			var sp ebird.Species
			if err := rows.Scan(&sp.CommonName, &sp.ScientificName); err != nil {
				yield(ebird.Species{}, fmt.Errorf("scanning species: %w", err))
				return
			}
			if !yield(sp, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ebird.Species{}, fmt.Errorf("iterating species: %w", err))
		}
	}
}

func (s *sqlStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MIN(year), 0), COALESCE(MAX(year), 0)
		FROM bird_sightings`).Scan(&st.Rows, &st.MinYear, &st.MaxYear)
	if err != nil {
		return Stats{}, fmt.Errorf("querying table stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT common_name, scientific_name FROM bird_sightings
		) AS species`).Scan(&st.Species)
	if err != nil {
		return Stats{}, fmt.Errorf("counting species: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSighting(row scanner) (Sighting, error) {
	var sg Sighting
	if err := row.Scan(
		&sg.ID, &sg.CommonName, &sg.ScientificName,
		&sg.Locality, &sg.Country, &sg.State, &sg.County,
		&sg.Date, &sg.Year, &sg.Month,
		&sg.Count, &sg.BreedingCategory,
	); err != nil {
		return Sighting{}, fmt.Errorf("scanning sighting: %w", err)
	}
	return sg, nil
}

// replacePlaceholders converts ? to $1, $2, $3 etc for postgres.
func replacePlaceholders(query string) string {
	result := make([]byte, 0, len(query))
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, fmt.Sprintf("$%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
