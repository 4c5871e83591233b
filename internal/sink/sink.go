// Package sink delivers terminal runs to the downstream collaborator: either
// an enriched record (success or partial success) or a failure report.
package sink

import (
	"context"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/pipeline"
)

// FailureReport is the diagnostic payload emitted for a failed run.
type FailureReport struct {
	NPI       string               `json:"npi"`
	LegalName string               `json:"legal_name"`
	RunID     string               `json:"run_id"`
	Stage     pipeline.State       `json:"stage"`
	Reason    enrich.FailureReason `json:"reason"`
}

// Sink receives every terminal run exactly once.
type Sink interface {
	Write(ctx context.Context, run *pipeline.Run) error
	Close() error
}

// WriteWithRetry writes a run, retrying transient sink failures with a short
// linear backoff. Permanent failures and context cancellation return
// immediately.
func WriteWithRetry(ctx context.Context, s Sink, run *pipeline.Run, retries int) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(time.Duration(attempt) * 250 * time.Millisecond)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
		err = s.Write(ctx, run)
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}

func failureReport(run *pipeline.Run) FailureReport {
	return FailureReport{
		NPI:       run.Seed.NPI,
		LegalName: run.Seed.LegalName,
		RunID:     run.ID,
		Stage:     run.FailedAt,
		Reason:    run.FailureReason,
	}
}
