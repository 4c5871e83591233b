package enrich

// CandidateSite is a candidate homepage for an organization, scored by the
// website confirmer. At most one candidate is confirmed per run.
type CandidateSite struct {
	URL        string
	Confidence float64
	// Evidence is a short snippet from the page that supported the score.
	Evidence string
}

// DiscoveredURL is a single in-domain URL found via sitemap or crawl.
//
// SourceSitemap is the sitemap file that listed it; CrawlDepth is the BFS
// depth at which the fallback crawler reached it (0 when sitemap-sourced).
type DiscoveredURL struct {
	URL           string
	SourceSitemap string
	CrawlDepth    int
	Category      Category
}

// Bucket maps each category to the ordered URLs assigned to it. URLs the
// categorizer could not place confidently live under CategoryUnknown.
type Bucket map[Category][]DiscoveredURL

// URLs returns the ordered URL strings for one category.
func (b Bucket) URLs(c Category) []string {
	ds := b[c]
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.URL)
	}
	return out
}

// PartialRecord is the structured output of one category's extraction, prior
// to merge. The payload fields are populated per category: About for
// CategoryAbout, Programs for CategoryPrograms, and so on. Admissions pages
// frequently list accepted payers, so CategoryAdmissions may populate
// InsurancePayers alongside Admissions.
//
// A nil *PartialRecord means "no evidence found", which is distinct from a
// category that was skipped because it had zero reachable URLs.
type PartialRecord struct {
	Category   Category
	Confidence float64
	SourceURLs []string

	About           *AboutInfo
	Programs        []Program
	Admissions      *AdmissionsInfo
	InsurancePayers []InsurancePayer
	Campuses        []Campus
	ParentCompany   *ParentCompany
}

// AboutInfo is top-level organization metadata, fed primarily by about pages.
type AboutInfo struct {
	Name              string `json:"name,omitempty"`
	LegalName         string `json:"legal_name,omitempty"`
	Description       string `json:"description,omitempty"`
	Tagline           string `json:"tagline,omitempty"`
	WebsiteURL        string `json:"website_url,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	Country           string `json:"country,omitempty"`
	YearFounded       int    `json:"year_founded,omitempty"`
	NonProfit         *bool  `json:"non_profit,omitempty"`
	ParentCompanyName string `json:"parent_company_name,omitempty"`
}

// Program is one treatment program or level of care, e.g. medical_detox.
type Program struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
}

// AdmissionsInfo describes the intake process.
type AdmissionsInfo struct {
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	ProcessSummary    string `json:"process_summary,omitempty"`
	AcceptsWalkIns    *bool  `json:"accepts_walk_ins,omitempty"`
	VerifyBenefitsURL string `json:"verify_benefits_url,omitempty"`
}

// InsurancePayer is one accepted insurer, e.g. "Aetna".
type InsurancePayer struct {
	Name string `json:"name"`
}

// Campus is a single facility location.
type Campus struct {
	Name          string  `json:"name,omitempty"`
	Slug          string  `json:"slug,omitempty"`
	Street        string  `json:"street,omitempty"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	PostalCode    string  `json:"postal_code,omitempty"`
	Country       string  `json:"country,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	TimeZone      string  `json:"time_zone,omitempty"`
	VisitingHours string  `json:"visiting_hours,omitempty"`
	BedsTotal     int     `json:"beds_total,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
}

// ParentCompany is the owning/parent organization, when one exists.
type ParentCompany struct {
	Name              string `json:"name,omitempty"`
	WebsiteURL        string `json:"website_url,omitempty"`
	Description       string `json:"description,omitempty"`
	HeadquartersCity  string `json:"headquarters_city,omitempty"`
	HeadquartersState string `json:"headquarters_state,omitempty"`
}

// TransientError marks an error as retryable.
//
// Fetch and capability calls wrap timeouts, 429s and 5xx responses in
// TransientError so callers retry with backoff instead of dropping the
// candidate/URL/category immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
