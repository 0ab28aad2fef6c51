package store

import "strings"

// Scope is the narrowest geographic level a Filter constrains.
type Scope int

const (
	ScopeCountry Scope = iota
	ScopeState
	ScopeCounty
)

func (s Scope) String() string {
	switch s {
	case ScopeState:
		return "state"
	case ScopeCounty:
		return "county"
	default:
		return "country"
	}
}

// Filter is a conjunctive, optionally partial geographic match.
// Empty components are unconstrained.
type Filter struct {
	Country string
	State   string
	County  string
}

// Scope returns the narrowest level the filter names.
func (f Filter) Scope() Scope {
	switch {
	case f.County != "":
		return ScopeCounty
	case f.State != "":
		return ScopeState
	default:
		return ScopeCountry
	}
}

// where builds "WHERE ..." for q with ? placeholders. Column names come
// from a fixed set; every value is returned as a bound argument.
func (q Query) where(extra ...string) (string, []any) {
	clauses := []string{q.Species.column() + " = ?"}
	args := []any{q.Species.Name}

	for _, c := range []struct {
		col, val string
	}{
		{"country", q.Filter.Country},
		{"state", q.Filter.State},
		{"county", q.Filter.County},
	} {
		if c.val == "" {
			continue
		}
		clauses = append(clauses, c.col+" = ?")
		args = append(args, c.val)
	}
	clauses = append(clauses, extra...)

	return "WHERE " + strings.Join(clauses, " AND "), args
}
