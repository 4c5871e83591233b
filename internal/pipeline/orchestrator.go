// Package pipeline sequences the enrichment stages per organization:
// confirm the website, discover its URLs, categorize them, extract each
// category, merge. Stage failures degrade the outcome instead of aborting
// the whole batch.
package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearpath-data/rehab-enricher/internal/confirm"
	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/extract"
	"github.com/clearpath-data/rehab-enricher/internal/merge"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// SiteConfirmer validates candidate homepages against the seed identity.
type SiteConfirmer interface {
	Confirm(ctx context.Context, s seed.Seed, candidates []string) (*confirm.CandidateResult, error)
}

// URLDiscoverer enumerates in-domain URLs for a confirmed site.
type URLDiscoverer interface {
	Discover(ctx context.Context, siteURL string) ([]enrich.DiscoveredURL, error)
}

// URLCategorizer assigns each discovered URL to exactly one category.
type URLCategorizer interface {
	Categorize(ctx context.Context, urls []enrich.DiscoveredURL) (enrich.Bucket, error)
}

// CategoryExtractor runs one category's structured extraction.
type CategoryExtractor interface {
	ExtractCategory(ctx context.Context, s seed.Seed, cat enrich.Category, urls []string) extract.Result
}

type Options struct {
	// RunTimeout is the whole-run wall-clock budget per seed. A run that
	// exceeds it fails with reason timeout and its partials are discarded.
	RunTimeout time.Duration

	// Categories is the extraction order, which is also the merge tie-break
	// priority. Defaults to every extractable category.
	Categories []enrich.Category

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 5 * time.Minute
	}
	if len(o.Categories) == 0 {
		o.Categories = enrich.ExtractableCategories()
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return o
}

// Orchestrator drives one run per seed through the stage machine.
type Orchestrator struct {
	candidates  confirm.CandidateSource
	confirmer   SiteConfirmer
	discoverer  URLDiscoverer
	categorizer URLCategorizer
	extractor   CategoryExtractor
	opts        Options
}

func NewOrchestrator(
	candidates confirm.CandidateSource,
	confirmer SiteConfirmer,
	discoverer URLDiscoverer,
	categorizer URLCategorizer,
	extractor CategoryExtractor,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		candidates:  candidates,
		confirmer:   confirmer,
		discoverer:  discoverer,
		categorizer: categorizer,
		extractor:   extractor,
		opts:        opts.withDefaults(),
	}
}

// EnrichSeed runs the full pipeline for one organization. It always returns
// a terminal Run; errors inside stages become the run's failure reason.
func (o *Orchestrator) EnrichSeed(ctx context.Context, s seed.Seed) *Run {
	run := &Run{
		ID:      uuid.NewString(),
		Seed:    s,
		State:   StateSeeded,
		Started: time.Now(),
	}
	logf := func(format string, args ...any) {
		prefix := make([]any, 0, len(args)+2)
		prefix = append(prefix, run.ID, s.NPI)
		prefix = append(prefix, args...)
		o.opts.Logger.Printf("run=%s npi=%s "+format, prefix...)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	fail := func(reason enrich.FailureReason) *Run {
		run.FailedAt = run.State
		run.State = StateFailed
		run.Outcome = enrich.OutcomeFailed
		run.FailureReason = reason
		run.Record = nil
		run.Finished = time.Now()
		logf("run failed: reason=%s duration=%s", reason, run.Finished.Sub(run.Started).Round(time.Millisecond))
		return run
	}
	// Context failures override any stage-local reason.
	failFromCtx := func(fallback enrich.FailureReason) *Run {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return fail(enrich.FailureTimeout)
		case ctx.Err() != nil:
			return fail(enrich.FailureCanceled)
		default:
			return fail(fallback)
		}
	}

	run.State = StateConfirming
	candidates, err := o.candidates.Candidates(runCtx, s)
	if err != nil {
		logf("candidate source failed: %v", err)
		return failFromCtx(enrich.FailureNoConfirmedSite)
	}
	confirmed, err := o.confirmer.Confirm(runCtx, s, candidates)
	if err != nil {
		logf("confirmation failed: %v", err)
		return failFromCtx(enrich.FailureNoConfirmedSite)
	}
	if confirmed == nil {
		logf("no candidate met the confirmation threshold (candidates=%d)", len(candidates))
		return fail(enrich.FailureNoConfirmedSite)
	}
	run.ConfirmedURL = confirmed.URL
	logf("site confirmed: url=%s confidence=%.2f", confirmed.URL, confirmed.Confidence)

	run.State = StateDiscovering
	urls, err := o.discoverer.Discover(runCtx, confirmed.URL)
	if err != nil {
		logf("discovery failed: %v", err)
		return failFromCtx(enrich.FailureNoData)
	}
	logf("discovered %d urls", len(urls))

	run.State = StateCategorizing
	bucket, err := o.categorizer.Categorize(runCtx, urls)
	if err != nil {
		logf("categorization failed: %v", err)
		return failFromCtx(enrich.FailureNoData)
	}
	for _, cat := range o.opts.Categories {
		logf("category %s: %d urls", cat, len(bucket[cat]))
	}

	// Extraction fans out per category; every sub-task finishes (with a
	// partial, no evidence, or skipped) before merging. One failed category
	// never fails the run on its own.
	run.State = StateExtracting
	results := make([]extract.Result, len(o.opts.Categories))
	var wg sync.WaitGroup
	for i, cat := range o.opts.Categories {
		wg.Add(1)
		go func(i int, cat enrich.Category) {
			defer wg.Done()
			results[i] = o.extractor.ExtractCategory(runCtx, s, cat, bucket.URLs(cat))
		}(i, cat)
	}
	wg.Wait()

	// A timed-out run is never partially merged.
	if runCtx.Err() != nil {
		return failFromCtx(enrich.FailureTimeout)
	}

	var partials []*enrich.PartialRecord
	for _, res := range results {
		run.UnreachableURLs = append(run.UnreachableURLs, res.Unreachable...)
		switch {
		case res.Partial != nil:
			partials = append(partials, res.Partial)
		default:
			run.MissingCategories = append(run.MissingCategories, res.Category)
			if res.Err != nil {
				logf("category %s produced no evidence: %v", res.Category, res.Err)
			} else if res.Skipped {
				logf("category %s skipped: no reachable urls", res.Category)
			}
		}
	}
	if len(partials) == 0 {
		return fail(enrich.FailureNoData)
	}

	run.State = StateMerging
	run.Record = merge.Merge(s, run.ID, confirmed.URL, partials, time.Now())

	run.State = StateDone
	if len(run.MissingCategories) == 0 {
		run.Outcome = enrich.OutcomeSuccess
	} else {
		run.Outcome = enrich.OutcomePartialSuccess
	}
	run.Finished = time.Now()
	logf(
		"run complete: outcome=%s categories=%d/%d duration=%s",
		run.Outcome,
		len(partials),
		len(o.opts.Categories),
		run.Finished.Sub(run.Started).Round(time.Millisecond),
	)
	return run
}
