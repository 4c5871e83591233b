package pipeline

import (
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// State is the stage a run has reached. Failed is absorbing; every other
// state advances forward only.
type State string

const (
	StateSeeded       State = "seeded"
	StateConfirming   State = "confirming"
	StateDiscovering  State = "discovering"
	StateCategorizing State = "categorizing"
	StateExtracting   State = "extracting"
	StateMerging      State = "merging"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Run is the per-organization pipeline run. It exists for the duration of
// processing one seed and always ends in exactly one terminal outcome:
// success, partial_success, or failed with a reason. Ambiguous states are
// never surfaced.
type Run struct {
	ID   string    `json:"run_id"`
	Seed seed.Seed `json:"-"`

	State         State                `json:"state"`
	Outcome       enrich.Outcome       `json:"outcome"`
	FailureReason enrich.FailureReason `json:"failure_reason,omitempty"`

	// FailedAt is the stage the run had reached when it failed.
	FailedAt State `json:"failed_at,omitempty"`

	ConfirmedURL string         `json:"confirmed_url,omitempty"`
	Record       *enrich.Record `json:"record,omitempty"`

	// MissingCategories lists extractable categories that produced no partial
	// record, whether skipped for lack of URLs or run without evidence.
	MissingCategories []enrich.Category `json:"missing_categories,omitempty"`

	// UnreachableURLs are discovered URLs that could not be fetched during
	// extraction. Kept as discovery-quality diagnostics.
	UnreachableURLs []string `json:"unreachable_urls,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Succeeded reports whether the run produced a record to persist.
func (r *Run) Succeeded() bool {
	return r.Outcome == enrich.OutcomeSuccess || r.Outcome == enrich.OutcomePartialSuccess
}
