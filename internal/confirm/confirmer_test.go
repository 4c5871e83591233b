package confirm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/fetch"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

var testSeed = seed.Seed{
	NPI:        "1234567890",
	LegalName:  "Example Recovery Center",
	Address:    "899 Meadows Rd",
	City:       "Boca Raton",
	State:      "FL",
	PostalCode: "33486",
	Phone:      "5619214769",
}

func matchingSite() string {
	return `<html><head><title>Example Recovery | Boca Raton Treatment</title></head>
<body><h1>Example Recovery</h1>
<p>Example Recovery is a substance treatment facility located at 899 Meadows Rd, Boca Raton, FL 33486.</p>
<p>Call us: (561) 921-4769</p></body></html>`
}

func TestScore_MatchingPageScoresHigh(t *testing.T) {
	t.Parallel()

	score, evidence := Score(testSeed, "https://examplerecovery.com/",
		"Example Recovery | Boca Raton Treatment",
		"Example Recovery is located at 899 Meadows Rd, Boca Raton, FL 33486.\nCall us: (561) 921-4769")
	if score < 0.6 {
		t.Fatalf("expected score >= 0.6, got %v", score)
	}
	if evidence == "" {
		t.Fatal("expected non-empty evidence snippet")
	}
}

func TestScore_UnrelatedPageScoresLow(t *testing.T) {
	t.Parallel()

	score, _ := Score(testSeed, "https://totally-different.org/",
		"Roofing Contractors of Maine",
		"We fix roofs in Portland, ME 04101.")
	if score >= 0.4 {
		t.Fatalf("expected low score, got %v", score)
	}
}

func TestConfirm_AcceptsFirstQualifyingCandidate(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>Unrelated Roofing</title></head><body>roofs</body></html>")
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, matchingSite())
	}))
	defer good.Close()

	c := New(fetch.New(fetch.Config{Timeout: 2 * time.Second}), 0.6)
	got, err := c.Confirm(context.Background(), testSeed, []string{bad.URL, good.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a confirmed candidate")
	}
	if got.Confidence < c.Threshold {
		t.Fatalf("confidence %v below threshold %v", got.Confidence, c.Threshold)
	}
	if got.URL != good.URL+"/" && got.URL != good.URL {
		t.Fatalf("unexpected confirmed URL: %q", got.URL)
	}
}

func TestConfirm_UnreachableCandidateSkipped(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, matchingSite())
	}))
	defer good.Close()

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	c := New(fetch.New(fetch.Config{Timeout: time.Second, Retries: 1, BackoffInitial: time.Millisecond}), 0.6)
	got, err := c.Confirm(context.Background(), testSeed, []string{deadURL, good.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected confirmation from the reachable candidate")
	}
}

func TestConfirm_NoQualifyingCandidate(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>Nothing Relevant</title></head><body>nope</body></html>")
	}))
	defer bad.Close()

	c := New(fetch.New(fetch.Config{Timeout: 2 * time.Second}), 0.6)
	got, err := c.Confirm(context.Background(), testSeed, []string{bad.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result, got %#v", got)
	}
}
