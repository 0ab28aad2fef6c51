// Package ebird parses eBird Basic Dataset extracts into typed observations.
package ebird

import "fmt"

// Column names of the eBird tab-delimited export that the parser reads.
const (
	ColCommonName       = "COMMON NAME"
	ColScientificName   = "SCIENTIFIC NAME"
	ColLocality         = "LOCALITY"
	ColCountry          = "COUNTRY"
	ColState            = "STATE"
	ColCounty           = "COUNTY"
	ColObservationDate  = "OBSERVATION DATE"
	ColObservationCount = "OBSERVATION COUNT"
	ColBreedingCategory = "BREEDING CATEGORY"
)

// RequiredColumns must be present in the header of every input file.
var RequiredColumns = []string{
	ColCommonName,
	ColScientificName,
	ColLocality,
	ColCountry,
	ColObservationDate,
}

// Observation is one recorded sighting event.
type Observation struct {
	CommonName       string
	ScientificName   string
	Locality         string
	Country          string
	State            string
	County           string
	Date             string // YYYY-MM-DD as given in the source
	Year             int
	Month            int
	Count            int64
	BreedingCategory string
}

// Species is a distinct (common name, scientific name) pair.
type Species struct {
	CommonName     string
	ScientificName string
}

// Profile selects one of the two ingestion and analysis behaviours.
type Profile string

const (
	// ProfileRegional analyses a single country, state or county extract.
	// Missing breeding categories become "N/A" and rejected rows are reported.
	ProfileRegional Profile = "regional"

	// ProfileGlobal analyses multi-country extracts. Missing breeding
	// categories stay empty and rejected rows are skipped silently.
	ProfileGlobal Profile = "global"
)

// BreedingPlaceholder is the value the regional profile stores when a row
// carries no breeding category.
const BreedingPlaceholder = "N/A"

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(s); p {
	case ProfileRegional, ProfileGlobal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown profile %q (want %q or %q)", s, ProfileRegional, ProfileGlobal)
	}
}

// Policy controls how the parser fills defaults and treats bad rows.
type Policy struct {
	// BreedingDefault replaces an absent or empty breeding category.
	BreedingDefault string
	// ReportRejects asks the caller to surface every rejected row.
	ReportRejects bool
	// RejectInvalidMonth rejects dates whose month lies outside 1-12.
	RejectInvalidMonth bool
}

// Policy returns the parsing policy for the profile.
func (p Profile) Policy() Policy {
	if p == ProfileGlobal {
		return Policy{BreedingDefault: "", ReportRejects: false}
	}
	return Policy{BreedingDefault: BreedingPlaceholder, ReportRejects: true}
}
