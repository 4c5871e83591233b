package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads seed rows from an NPI export. The file must have a header row
// with at least "npi_number" and "organization_name" columns; address, city,
// state, postal_code, phone and taxonomy_code are used when present. Rows
// missing either required value are skipped.
func ReadCSV(r io.Reader) ([]Seed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"npi_number", "organization_name"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var seeds []Seed
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		s := Seed{
			NPI:          field(rec, "npi_number"),
			LegalName:    field(rec, "organization_name"),
			Address:      field(rec, "address"),
			City:         field(rec, "city"),
			State:        field(rec, "state"),
			PostalCode:   field(rec, "postal_code"),
			Phone:        field(rec, "phone"),
			TaxonomyCode: field(rec, "taxonomy_code"),
		}
		if s.NPI == "" || s.LegalName == "" {
			continue
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}
