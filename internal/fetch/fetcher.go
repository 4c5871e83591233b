package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"golang.org/x/time/rate"
)

// Config controls the shared fetcher. Zero values get sensible defaults.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	MaxRedirects int

	// Retries is the number of additional attempts for transient failures.
	Retries        int
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Limiter is the process-wide network budget, shared by every concurrent
	// run. Nil disables limiting (tests).
	Limiter *rate.Limiter
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "rehab-enricher/1.0"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 << 20
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 200 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 2 * time.Second
	}
	return c
}

// Result is one fetched response.
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
	// FinalURL is the URL after redirects.
	FinalURL string
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Result) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "html")
}

// StatusError is a non-2xx response. 404-class errors are permanent and must
// not be retried; 429 and 5xx are wrapped in enrich.TransientError by Get.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// isNotFound reports whether err is a permanent HTTP 404/410.
func isNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
	}
	return false
}

// Fetcher retrieves raw web content under the process-wide rate limit.
type Fetcher struct {
	cfg    Config
	client *http.Client
	conv   *Converter
}

// New builds a fetcher with its own HTTP client and markdown converter.
func New(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("too many redirects (max %d)", cfg.MaxRedirects)
				}
				return nil
			},
		},
		conv: NewConverter(),
	}
}

// Get performs a single fetch attempt. Transient failures (timeouts,
// connection errors, 429, 5xx) come back wrapped in enrich.TransientError.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	if f.cfg.Limiter != nil {
		if err := f.cfg.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyNetErr(rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		se := &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5 {
			return nil, &enrich.TransientError{Err: se}
		}
		return nil, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, &enrich.TransientError{Err: fmt.Errorf("read body of %s: %w", rawURL, err)}
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", rawURL, f.cfg.MaxBodyBytes)
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// GetWithRetry fetches with bounded retries and jittered exponential backoff
// for transient failures. Permanent failures return immediately.
func (f *Fetcher) GetWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	attempts := 1 + f.cfg.Retries
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := f.Get(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var te *enrich.TransientError
		if !errors.As(err, &te) || attempt == attempts-1 {
			return nil, lastErr
		}

		t := time.NewTimer(backoffSleep(f.cfg.BackoffInitial, f.cfg.BackoffMax, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// Page is fetched HTML normalized to markdown.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// Markdown fetches a URL (with retries) and converts the HTML body to a
// normalized markdown representation.
func (f *Fetcher) Markdown(ctx context.Context, rawURL string) (*Page, error) {
	res, err := f.GetWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !res.IsHTML() {
		return nil, fmt.Errorf("fetch %s: not HTML (%s)", rawURL, res.ContentType)
	}
	conv, err := f.conv.Convert(res.Body)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", rawURL, err)
	}
	return &Page{
		URL:      res.FinalURL,
		Title:    conv.Title,
		Markdown: conv.Markdown,
	}, nil
}

func classifyNetErr(rawURL string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &enrich.TransientError{Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		// Domain does not resolve; retrying will not help.
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &enrich.TransientError{Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}

func backoffSleep(initial, max time.Duration, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	// +/-20% jitter so concurrent runs do not retry in lockstep.
	j := 1 + (rand.Float64()*2-1)*0.2
	return time.Duration(float64(sleep) * j)
}
