package extract

import (
	"fmt"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

var categoryTasks = map[enrich.Category]string{
	enrich.CategoryAdmissions: "Extract admissions details: intake phone and email, a short summary " +
		"of the admissions process, whether walk-ins are accepted, a benefits-verification URL, " +
		"and any accepted insurance payers mentioned on admissions pages.",
	enrich.CategoryPrograms: "Extract the treatment programs and levels of care offered. Normalize " +
		"each into a canonical slug plus display name, for example: medical_detox, inpatient_rehab, " +
		"outpatient_programs, intensive_outpatient, partial_hospitalization, " +
		"medication_assisted_treatment, aftercare_and_relapse_prevention.",
	enrich.CategoryAbout: "Extract top-level organization metadata: name, legal name, description, " +
		"tagline, main phone and email, city/state/postal code, year founded, non-profit status, " +
		"and the parent company name if stated.",
	enrich.CategoryInsurance: "Extract the accepted insurance payers, for example 'Aetna', " +
		"'Blue Cross Blue Shield', 'Cigna'. One entry per payer, no duplicates.",
	enrich.CategoryCampuses: "Extract every facility campus or location: name, street address, " +
		"city, state, postal code, phone, time zone, visiting hours, and bed counts when stated. " +
		"Create a distinct entry per campus even when details overlap.",
	enrich.CategoryParentCompany: "Identify the parent or owning company of this organization, " +
		"with its website, a short description, and headquarters city/state when stated.",
}

// instructions builds the grounded prompt for one category. The seed identity
// anchors the capability to the right organization; stricter adds corrective
// framing for the one retry after a schema-validation failure.
func instructions(s seed.Seed, cat enrich.Category, stricter bool) string {
	var b strings.Builder
	b.WriteString("You are a data extraction tool for a single substance-treatment organization.\n")
	fmt.Fprintf(&b, "Organization: %s", s.LegalName)
	if loc := s.Location(); loc != "" {
		fmt.Fprintf(&b, " (%s)", loc)
	}
	b.WriteString("\n\n")
	b.WriteString(categoryTasks[cat])
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Use ONLY the page content provided below; never invent values.\n")
	b.WriteString("- Omit fields you cannot find rather than guessing.\n")
	b.WriteString("- Set confidence in [0,1] to your certainty in the extracted values.\n")
	b.WriteString("- Return ONLY a single JSON object matching the response schema.\n")
	if stricter {
		b.WriteString("\nYour previous response did not conform to the schema. ")
		b.WriteString("Respond again with EXACTLY the schema fields, correct JSON types, no extra keys.\n")
	}
	return b.String()
}

// pagesInput renders fetched pages into one prompt body with URL markers so
// the capability can be grounded per page.
func pagesInput(pages []pageContent) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "===== PAGE: %s =====\n", p.url)
		b.WriteString(p.markdown)
		b.WriteString("\n\n")
	}
	return b.String()
}
