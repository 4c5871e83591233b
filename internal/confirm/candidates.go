package confirm

import (
	"context"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// DomainGuesser is the fallback candidate source used when no external search
// capability is wired: it derives likely homepage domains from the
// organization name. Guessed candidates still have to pass the confirmer's
// scoring, so a wrong guess costs a fetch, not a wrong record.
type DomainGuesser struct {
	// MaxCandidates caps the guesses, default 8.
	MaxCandidates int
}

var guessTLDs = []string{".com", ".org", ".net"}

func (g DomainGuesser) Candidates(ctx context.Context, s seed.Seed) ([]string, error) {
	tokens := nameTokens(s.LegalName)
	if len(tokens) == 0 {
		return nil, nil
	}
	max := g.MaxCandidates
	if max <= 0 {
		max = 8
	}

	joined := strings.Join(tokens, "")
	hyphened := strings.Join(tokens, "-")

	var out []string
	seen := make(map[string]bool)
	add := func(domain string) {
		if domain == "" || seen[domain] || len(out) >= max {
			return
		}
		seen[domain] = true
		out = append(out, "https://"+domain)
	}
	for _, tld := range guessTLDs {
		add(joined + tld)
		if hyphened != joined {
			add(hyphened + tld)
		}
	}
	return out, nil
}
