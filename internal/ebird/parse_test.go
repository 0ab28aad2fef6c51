package ebird_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = []string{
	"GLOBAL UNIQUE IDENTIFIER", "COMMON NAME", "SCIENTIFIC NAME", "OBSERVATION COUNT",
	"BREEDING CATEGORY", "COUNTRY", "STATE", "COUNTY", "LOCALITY", "OBSERVATION DATE",
}

func row(common, sci, count, breeding, country, state, county, locality, date string) []string {
	return []string{"URN:1", common, sci, count, breeding, country, state, county, locality, date}
}

func TestParse_ValidRow(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	rec := row("Blue Jay", "Cyanocitta cristata", "12", "C4", "United States", "Ohio", "Franklin", "Scioto Mile", "2021-05-14")

	got, err := ebird.Parse(idx, rec, ebird.ProfileGlobal.Policy())
	require.NoError(t, err)

	want := ebird.Observation{
		CommonName:       "Blue Jay",
		ScientificName:   "Cyanocitta cristata",
		Locality:         "Scioto Mile",
		Country:          "United States",
		State:            "Ohio",
		County:           "Franklin",
		Date:             "2021-05-14",
		Year:             2021,
		Month:            5,
		Count:            12,
		BreedingCategory: "C4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Idempotent(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	rec := row("Blue Jay", "Cyanocitta cristata", "X", "", "United States", "", "", "Backyard", "2020-01-02")

	first, err := ebird.Parse(idx, rec, ebird.ProfileRegional.Policy())
	require.NoError(t, err)
	second, err := ebird.Parse(idx, rec, ebird.ProfileRegional.Policy())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParse_DateGate(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	tests := []struct {
		date   string
		accept bool
	}{
		{"2020-06-01", true},
		{"2020-6-1", true},
		{"", false},
		{"   ", false},
		{"2020/06/01", false},
		{"2020-06", false},
		{"2020-06-01-02", false},
		{"year-06-01", false},
		{"2020-jun-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			rec := row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", "Here", tt.date)
			_, err := ebird.Parse(idx, rec, ebird.ProfileGlobal.Policy())
			if tt.accept {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ebird.ErrMalformedRow)
			var re *ebird.RowError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, ebird.ColObservationDate, re.Field)
		})
	}
}

func TestParse_CountCoercion(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	tests := []struct {
		raw  string
		want int64
	}{
		{"0", 0},
		{"7", 7},
		{"0042", 42},
		{"X", 0},
		{"", 0},
		{"-3", 0},
		{"+3", 0},
		{"1.5", 0},
		{" 4", 0},
		{"99999999999999999999999", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rec := row("Blue Jay", "Cyanocitta cristata", tt.raw, "", "US", "", "", "Here", "2020-01-01")
			got, err := ebird.Parse(idx, rec, ebird.ProfileGlobal.Policy())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Count)
		})
	}
}

func TestParse_RequiredFields(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	tests := []struct {
		name  string
		rec   []string
		field string
	}{
		{"common name", row("", "Cyanocitta cristata", "1", "", "US", "", "", "Here", "2020-01-01"), ebird.ColCommonName},
		{"scientific name", row("Blue Jay", "", "1", "", "US", "", "", "Here", "2020-01-01"), ebird.ColScientificName},
		{"country", row("Blue Jay", "Cyanocitta cristata", "1", "", "", "", "", "Here", "2020-01-01"), ebird.ColCountry},
		{"locality", row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", "", "2020-01-01"), ebird.ColLocality},
		{"blank common name", row("  \t", "Cyanocitta cristata", "1", "", "US", "", "", "Here", "2020-01-01"), ebird.ColCommonName},
		{"blank locality", row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", "   ", "2020-01-01"), ebird.ColLocality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ebird.Parse(idx, tt.rec, ebird.ProfileGlobal.Policy())
			var re *ebird.RowError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.field, re.Field)
			assert.Contains(t, re.Error(), tt.field)
		})
	}
}

func TestParse_BreedingDefaultByProfile(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	rec := row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", "Here", "2020-01-01")

	regional, err := ebird.Parse(idx, rec, ebird.ProfileRegional.Policy())
	require.NoError(t, err)
	assert.Equal(t, "N/A", regional.BreedingCategory)

	global, err := ebird.Parse(idx, rec, ebird.ProfileGlobal.Policy())
	require.NoError(t, err)
	assert.Equal(t, "", global.BreedingCategory)
}

func TestParse_MissingBreedingColumn(t *testing.T) {
	idx := ebird.MakeHeaderIndex([]string{"COMMON NAME", "SCIENTIFIC NAME", "COUNTRY", "LOCALITY", "OBSERVATION DATE"})
	got, err := ebird.Parse(idx, []string{"Blue Jay", "Cyanocitta cristata", "US", "Here", "2020-03-04"}, ebird.ProfileRegional.Policy())
	require.NoError(t, err)
	assert.Equal(t, "N/A", got.BreedingCategory)
	assert.Equal(t, int64(0), got.Count)
	assert.Empty(t, got.State)
}

func TestParse_OutOfRangeMonth(t *testing.T) {
	idx := ebird.MakeHeaderIndex(testHeader)
	rec := row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", "Here", "2020-13-01")

	got, err := ebird.Parse(idx, rec, ebird.Policy{})
	require.NoError(t, err)
	assert.Equal(t, 13, got.Month)

	_, err = ebird.Parse(idx, rec, ebird.Policy{RejectInvalidMonth: true})
	assert.ErrorIs(t, err, ebird.ErrMalformedRow)
}

func TestParseProfile(t *testing.T) {
	p, err := ebird.ParseProfile("global")
	require.NoError(t, err)
	assert.Equal(t, ebird.ProfileGlobal, p)

	_, err = ebird.ParseProfile("planet")
	assert.Error(t, err)
}

func TestReader_Stream(t *testing.T) {
	input := "\ufeff" + strings.Join(testHeader, "\t") + "\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "10", "", "US", "OH", "Franklin", "Park", "2020-04-01"), "\t") + "\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "X", "", "US", "OH", "Franklin", "Park", "not-a-date"), "\t") + "\n" +
		strings.Join(row("Northern Cardinal", "Cardinalis cardinalis", "2", "C2", "US", "OH", "Delaware", "Woods", "2021-07-09"), "\t") + "\n"

	r, err := ebird.NewReader(strings.NewReader(input), ebird.ProfileRegional.Policy())
	require.NoError(t, err)

	var accepted []ebird.Observation
	var rejected []*ebird.RowError
	for {
		obs, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *ebird.RowError
		if errors.As(err, &re) {
			rejected = append(rejected, re)
			continue
		}
		require.NoError(t, err)
		accepted = append(accepted, obs)
	}

	require.Len(t, accepted, 2)
	assert.Equal(t, "Blue Jay", accepted[0].CommonName)
	assert.Equal(t, "Northern Cardinal", accepted[1].CommonName)
	require.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].Line)
	assert.Equal(t, "not-a-date", rejected[0].Raw[9])
}

func TestReader_QuotesAreLiteral(t *testing.T) {
	input := strings.Join(testHeader, "\t") + "\r\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "3", "", "US", "OH", "Franklin", `"Hidden" Pond`, "2020-04-01"), "\t") + "\r\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "4", "", "US", "OH", "Franklin", "Park", "2020-04-02"), "\t") + "\r\n" +
		"\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "5", "", "US", "OH", "Franklin", `Lake "East`, "not-a-date"), "\t") + "\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "6", "", "US", "OH", "Franklin", "Lake", "2020-04-03"), "\t")

	r, err := ebird.NewReader(strings.NewReader(input), ebird.ProfileRegional.Policy())
	require.NoError(t, err)

	var localities []string
	var rejected []*ebird.RowError
	for {
		obs, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *ebird.RowError
		if errors.As(err, &re) {
			rejected = append(rejected, re)
			continue
		}
		require.NoError(t, err)
		localities = append(localities, obs.Locality)
	}

	assert.Equal(t, []string{`"Hidden" Pond`, "Park", "Lake"}, localities)
	require.Len(t, rejected, 1)
	assert.Equal(t, 5, rejected[0].Line)
	assert.Equal(t, `Lake "East`, rejected[0].Raw[8])
}

func TestReader_LongField(t *testing.T) {
	long := strings.Repeat("a", 200_000)
	input := strings.Join(testHeader, "\t") + "\n" +
		strings.Join(row("Blue Jay", "Cyanocitta cristata", "1", "", "US", "", "", long, "2020-04-01"), "\t") + "\n"

	r, err := ebird.NewReader(strings.NewReader(input), ebird.ProfileGlobal.Policy())
	require.NoError(t, err)
	obs, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, obs.Locality, len(long))
}

func TestNewReader_MissingColumns(t *testing.T) {
	_, err := ebird.NewReader(strings.NewReader("COMMON NAME\tLOCALITY\n"), ebird.ProfileGlobal.Policy())
	require.ErrorIs(t, err, ebird.ErrMissingColumns)
	assert.Contains(t, err.Error(), "OBSERVATION DATE")
}

func TestNewReader_EmptyInput(t *testing.T) {
	_, err := ebird.NewReader(strings.NewReader(""), ebird.ProfileGlobal.Policy())
	assert.Error(t, err)
}
