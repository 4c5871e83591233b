package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/pipeline"
)

// API posts terminal runs to the downstream collection service: enriched
// records to /v1/records, failure reports to /v1/failures.
type API struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewAPI constructs the HTTP sink. baseURL may omit the scheme; https is
// assumed. token is sent as a bearer credential when non-empty.
func NewAPI(baseURL, token string) (*API, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &API{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("sink base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse sink base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sink base URL must include a host (got %q)", raw)
	}
	// Base path must end with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (a *API) Write(ctx context.Context, run *pipeline.Run) error {
	if run.Succeeded() {
		return a.post(ctx, "v1/records", "postRecord", run)
	}
	return a.post(ctx, "v1/failures", "postFailure", failureReport(run))
}

// Close satisfies Sink; the HTTP sink holds nothing to flush.
func (a *API) Close() error { return nil }

func (a *API) post(ctx context.Context, relPath, op string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	u := a.baseURL.ResolveReference(&url.URL{Path: relPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &enrich.TransientError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rb, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		herr := newHTTPError(op, resp, rb)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5 {
			return &enrich.TransientError{Err: herr}
		}
		return herr
	}
	return nil
}

// IsTransient reports whether a sink error is worth retrying.
func IsTransient(err error) bool {
	var te *enrich.TransientError
	return errors.As(err, &te)
}
