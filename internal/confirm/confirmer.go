// Package confirm decides whether a candidate URL is an organization's
// authoritative website. Candidates come ranked from an external search
// capability; the confirmer only scores and validates what it receives.
package confirm

import (
	"context"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/fetch"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// CandidateSource is the external search capability that proposes ranked
// candidate URLs for a seed.
type CandidateSource interface {
	Candidates(ctx context.Context, s seed.Seed) ([]string, error)
}

// CandidateSourceFunc adapts a function to the CandidateSource interface.
type CandidateSourceFunc func(ctx context.Context, s seed.Seed) ([]string, error)

func (f CandidateSourceFunc) Candidates(ctx context.Context, s seed.Seed) ([]string, error) {
	return f(ctx, s)
}

// Confirmer scores candidates against the seed identity.
type Confirmer struct {
	fetcher *fetch.Fetcher

	// Threshold is the minimum confidence to accept a candidate.
	Threshold float64
}

func New(f *fetch.Fetcher, threshold float64) *Confirmer {
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Confirmer{fetcher: f, Threshold: threshold}
}

// Confirm fetches each candidate in order and accepts the first whose score
// meets the threshold. Candidates that cannot be fetched (after the fetcher's
// bounded retries) are skipped, not fatal. Returns nil when no candidate
// qualifies.
func (c *Confirmer) Confirm(ctx context.Context, s seed.Seed, candidates []string) (*CandidateResult, error) {
	for _, raw := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		page, err := c.fetcher.Markdown(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		score, evidence := Score(s, page.URL, page.Title, page.Markdown)
		if score >= c.Threshold {
			return &CandidateResult{
				URL:        page.URL,
				Confidence: score,
				Evidence:   evidence,
			}, nil
		}
	}
	return nil, nil
}

// CandidateResult is a confirmed site with its supporting evidence.
type CandidateResult struct {
	URL        string
	Confidence float64
	Evidence   string
}
