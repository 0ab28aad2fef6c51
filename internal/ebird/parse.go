package ebird

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRow is matched by every *RowError.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")
)

// RowError describes a rejected input row. Reading may continue after it.
type RowError struct {
	Line   int
	Field  string
	Reason string
	Raw    []string
}

func (e *RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Is reports whether target is ErrMalformedRow.
func (e *RowError) Is(target error) bool {
	return target == ErrMalformedRow
}

// HeaderIndex maps an upper-cased, trimmed column name to its position.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
// It should be called once per file and reused for every row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Missing returns the columns from names that the header does not carry.
func (h HeaderIndex) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if _, ok := h[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// cell returns the value of column name in record. ok is false when the
// header has no such column or the record is too short to hold it.
func (h HeaderIndex) cell(record []string, name string) (v string, ok bool) {
	pos, found := h[name]
	if !found || pos >= len(record) {
		return "", false
	}
	return record[pos], true
}

// Parse converts one record into an Observation. It is pure: the same
// record, index and policy always produce the same result.
// A rejected record yields a *RowError with Line left at zero.
func Parse(idx HeaderIndex, record []string, p Policy) (Observation, error) {
	reject := func(field, reason string) (Observation, error) {
		return Observation{}, &RowError{Field: field, Reason: reason}
	}

	date, _ := idx.cell(record, ColObservationDate)
	date = strings.TrimSpace(date)
	if date == "" {
		return reject(ColObservationDate, "missing observation date")
	}
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return reject(ColObservationDate, fmt.Sprintf("date %q is not year-month-day", date))
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return reject(ColObservationDate, fmt.Sprintf("date %q has a non-numeric year", date))
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return reject(ColObservationDate, fmt.Sprintf("date %q has a non-numeric month", date))
	}
	if p.RejectInvalidMonth && (month < 1 || month > 12) {
		return reject(ColObservationDate, fmt.Sprintf("date %q has month %d outside 1-12", date, month))
	}

	obs := Observation{
		Date:  date,
		Year:  year,
		Month: month,
	}

	required := []struct {
		col string
		dst *string
	}{
		{ColCommonName, &obs.CommonName},
		{ColScientificName, &obs.ScientificName},
		{ColLocality, &obs.Locality},
		{ColCountry, &obs.Country},
	}
	for _, r := range required {
		v, _ := idx.cell(record, r.col)
		if strings.TrimSpace(v) == "" {
			return reject(r.col, "missing value")
		}
		*r.dst = v
	}

	obs.State, _ = idx.cell(record, ColState)
	obs.County, _ = idx.cell(record, ColCounty)

	raw, _ := idx.cell(record, ColObservationCount)
	obs.Count = parseCount(raw)

	obs.BreedingCategory, _ = idx.cell(record, ColBreedingCategory)
	if obs.BreedingCategory == "" {
		obs.BreedingCategory = p.BreedingDefault
	}

	return obs, nil
}

// parseCount returns the value of a base-10 non-negative integer literal,
// or 0 for anything else ("X", blank, signs, overflow).
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
