package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/llm"
)

type fakeCapability struct {
	fn func(req llm.Request) ([]byte, error)
}

func (f *fakeCapability) GenerateStructured(_ context.Context, req llm.Request) ([]byte, error) {
	return f.fn(req)
}

func TestHeuristicScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want enrich.Category
	}{
		{"https://x.com/admissions", enrich.CategoryAdmissions},
		{"https://x.com/admissions/what-to-bring", enrich.CategoryAdmissions},
		{"https://x.com/programs/medical-detox", enrich.CategoryPrograms},
		{"https://x.com/levels-of-care", enrich.CategoryPrograms},
		{"https://x.com/about-us/our-team", enrich.CategoryAbout},
		{"https://x.com/insurance/aetna-coverage", enrich.CategoryInsurance},
		{"https://x.com/locations/boca-raton-campus", enrich.CategoryCampuses},
		{"https://x.com/blog/2024/some-post-title", enrich.CategoryUnknown},
	}
	for _, tc := range cases {
		got, conf, _ := HeuristicScore(tc.url)
		if got != tc.want {
			t.Errorf("HeuristicScore(%q) = %v (conf %v), want %v", tc.url, got, conf, tc.want)
		}
	}
}

func TestHeuristicScore_TieHalvesConfidence(t *testing.T) {
	t.Parallel()

	cat, conf, tied := HeuristicScore("https://x.com/insurance-admissions")
	if !tied {
		t.Fatalf("expected a tie, got %v conf=%v", cat, conf)
	}
	if conf >= 0.5 {
		t.Fatalf("tie confidence should be below 0.5, got %v", conf)
	}
}

func disc(urls ...string) []enrich.DiscoveredURL {
	out := make([]enrich.DiscoveredURL, 0, len(urls))
	for _, u := range urls {
		out = append(out, enrich.DiscoveredURL{URL: u})
	}
	return out
}

func TestCategorize_HeuristicsOnly(t *testing.T) {
	t.Parallel()

	c := New(nil, 0.5)
	bucket, err := c.Categorize(context.Background(), disc(
		"https://x.com/admissions",
		"https://x.com/programs/detox",
		"https://x.com/programs/iop",
		"https://x.com/blog/post",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(bucket[enrich.CategoryAdmissions]); got != 1 {
		t.Fatalf("admissions: got %d", got)
	}
	if got := len(bucket[enrich.CategoryPrograms]); got != 2 {
		t.Fatalf("programs: got %d", got)
	}
	if got := len(bucket[enrich.CategoryUnknown]); got != 1 {
		t.Fatalf("unknown: got %d", got)
	}
}

func TestCategorize_AmbiguousResolvedByCapability(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{fn: func(req llm.Request) ([]byte, error) {
		return json.Marshal([]categorizedURL{
			{URL: "https://x.com/we-can-help", Category: "programs", Confidence: 0.9},
		})
	}}
	c := New(fake, 0.5)
	bucket, err := c.Categorize(context.Background(), disc(
		"https://x.com/admissions",
		"https://x.com/we-can-help",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(bucket[enrich.CategoryPrograms]); got != 1 {
		t.Fatalf("expected capability assignment, bucket: %#v", bucket)
	}
	if got := len(bucket[enrich.CategoryUnknown]); got != 0 {
		t.Fatalf("expected no unknowns, got %d", got)
	}
}

func TestCategorize_CapabilityFailureLeavesUnknown(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{fn: func(llm.Request) ([]byte, error) {
		return nil, errors.New("quota exhausted")
	}}
	c := New(fake, 0.5)
	bucket, err := c.Categorize(context.Background(), disc("https://x.com/mystery-page"))
	if err != nil {
		t.Fatalf("categorization must not fail the run: %v", err)
	}
	if got := len(bucket[enrich.CategoryUnknown]); got != 1 {
		t.Fatalf("expected unknown fallback, bucket: %#v", bucket)
	}
}

func TestCategorize_LowCapabilityConfidenceStaysUnknown(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{fn: func(llm.Request) ([]byte, error) {
		return json.Marshal([]categorizedURL{
			{URL: "https://x.com/mystery-page", Category: "campuses", Confidence: 0.2},
		})
	}}
	c := New(fake, 0.5)
	bucket, err := c.Categorize(context.Background(), disc("https://x.com/mystery-page"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(bucket[enrich.CategoryUnknown]); got != 1 {
		t.Fatalf("expected unknown for low confidence, bucket: %#v", bucket)
	}
}
