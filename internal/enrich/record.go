package enrich

import "time"

// Provenance records which source contributed a populated field's value, so
// conflicting values can be explained and re-verified.
type Provenance struct {
	SourceURL  string   `json:"source_url"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Record is the merged, final structured entity for one organization. It is
// immutable after merge; a later run supersedes rather than mutates it.
type Record struct {
	NPI          string `json:"npi"`
	LegalName    string `json:"legal_name"`
	ConfirmedURL string `json:"confirmed_url"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Tagline     string `json:"tagline,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Country     string `json:"country,omitempty"`
	YearFounded int    `json:"year_founded,omitempty"`
	NonProfit   *bool  `json:"non_profit,omitempty"`

	Programs        []Program        `json:"programs,omitempty"`
	Admissions      *AdmissionsInfo  `json:"admissions,omitempty"`
	InsurancePayers []InsurancePayer `json:"insurance_payers,omitempty"`
	Campuses        []Campus         `json:"campuses,omitempty"`
	ParentCompany   *ParentCompany   `json:"parent_company,omitempty"`

	// Provenance keys are record field names, e.g. "phone" or "programs".
	// Every populated non-seed field has an entry.
	Provenance map[string]Provenance `json:"provenance"`

	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Outcome is the terminal result kind of one pipeline run.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFailed         Outcome = "failed"
)

// FailureReason explains a Failed outcome.
type FailureReason string

const (
	FailureNoConfirmedSite FailureReason = "no-confirmed-site"
	FailureNoData          FailureReason = "no-data"
	FailureTimeout         FailureReason = "timeout"
	FailureCanceled        FailureReason = "canceled"
)
