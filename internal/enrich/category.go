package enrich

import (
	"fmt"
	"strings"
)

// Category is a fixed content-type bucket used to scope extraction.
type Category string

const (
	CategoryAdmissions    Category = "admissions"
	CategoryPrograms      Category = "programs"
	CategoryAbout         Category = "about"
	CategoryInsurance     Category = "insurance"
	CategoryCampuses      Category = "campuses"
	CategoryParentCompany Category = "parentcompany"

	// CategoryUnknown is a valid terminal bucket, not an error. Unknown URLs
	// are never extracted.
	CategoryUnknown Category = "unknown"
)

// ExtractableCategories lists every category that has an extractor, in the
// default merge tie-break priority order (most load-bearing first).
func ExtractableCategories() []Category {
	return []Category{
		CategoryAdmissions,
		CategoryPrograms,
		CategoryAbout,
		CategoryInsurance,
		CategoryCampuses,
		CategoryParentCompany,
	}
}

// ParseCategory maps a string onto a known category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryAdmissions, CategoryPrograms, CategoryAbout, CategoryInsurance,
		CategoryCampuses, CategoryParentCompany, CategoryUnknown:
		return c, nil
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", s)
}

// DefaultPriority returns the merge tie-break rank for a category; lower wins.
// Unknown categories rank last.
func DefaultPriority(c Category) int {
	for i, p := range ExtractableCategories() {
		if p == c {
			return i
		}
	}
	return len(ExtractableCategories())
}
