package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed capability.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Used to point at the mock
	// capability server in local runs and tests.
	BaseURL string

	// Timeout bounds each individual generate call, so one hung call fails
	// its own category instead of consuming the run budget. Zero disables
	// the per-call bound.
	Timeout time.Duration

	// Limiter is the process-wide call quota shared by every concurrent run.
	// Nil disables limiting.
	Limiter *rate.Limiter
}

// Gemini implements Capability on the Gemini API with structured output.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		timeout: cfg.Timeout,
		limiter: cfg.Limiter,
	}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) GenerateStructured(ctx context.Context, req Request) ([]byte, error) {
	if req.Schema == nil {
		return nil, errors.New("gemini: request schema is required")
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	prompt := req.Instructions
	if strings.TrimSpace(req.Input) != "" {
		prompt += "\n\n" + req.Input
	}

	// The per-call deadline starts after the quota wait; time spent queued
	// behind the limiter does not count against the call.
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	)
	if err != nil {
		return nil, classifyErr(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("gemini: empty structured response")
	}
	return []byte(text), nil
}

func classifyErr(err error) error {
	// Wrap transient failures so callers retry with backoff.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &enrich.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &enrich.TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &enrich.TransientError{Err: err}
	}
	return err
}
