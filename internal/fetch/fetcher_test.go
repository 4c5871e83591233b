package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
)

func TestGet_TransientStatusWrapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	_, err := f.Get(context.Background(), srv.URL)
	var te *enrich.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError for 503, got %v", err)
	}
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	_, err := f.Get(context.Background(), srv.URL+"/missing")
	if err == nil || !isNotFound(err) {
		t.Fatalf("expected permanent 404, got %v", err)
	}
	var te *enrich.TransientError
	if errors.As(err, &te) {
		t.Fatalf("404 must not be transient: %v", err)
	}
}

func TestGetWithRetry_RecoversAfterTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{
		Timeout:        2 * time.Second,
		Retries:        3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	})
	res, err := f.GetWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if !res.IsHTML() {
		t.Fatalf("expected HTML result, got %q", res.ContentType)
	}
}

func TestGetWithRetry_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second, Retries: 5, BackoffInitial: time.Millisecond})
	if _, err := f.GetWithRetry(context.Background(), srv.URL); !isNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 attempt for permanent error, got %d", got)
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Admissions | Example Recovery</title>
<script>var x = 1;</script></head>
<body><nav><a href="/">Home</a></nav>
<h1>Admissions</h1><p>Call us to <strong>verify benefits</strong> today.</p>
<footer>footer junk</footer></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	p, err := f.Markdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Admissions | Example Recovery" {
		t.Fatalf("unexpected title: %q", p.Title)
	}
	if !strings.Contains(p.Markdown, "verify benefits") {
		t.Fatalf("expected body text in markdown: %q", p.Markdown)
	}
	if strings.Contains(p.Markdown, "var x") || strings.Contains(p.Markdown, "footer junk") {
		t.Fatalf("expected script/footer stripped: %q", p.Markdown)
	}
}

func TestMarkdown_RejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	if _, err := f.Markdown(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-HTML content")
	}
}
