package seed

import "strings"

// Seed is the minimal verified identity record for an organization prior to
// enrichment, produced upstream from the NPI registry filter. Immutable.
type Seed struct {
	NPI          string
	LegalName    string
	Address      string
	City         string
	State        string
	PostalCode   string
	Phone        string
	TaxonomyCode string
}

// Location renders the seed's address parts as a single display string for
// grounding prompts and similarity scoring.
func (s Seed) Location() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Address, s.City, s.State, s.PostalCode} {
		if v := strings.TrimSpace(p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
