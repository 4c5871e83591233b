package llm

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/mockllm"
)

var testSchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: map[string]*genai.Schema{"confidence": {Type: genai.TypeNumber}},
	Required:   []string{"confidence"},
}

func newTestGemini(t *testing.T, mock *mockllm.Server, timeout time.Duration) *Gemini {
	t.Helper()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)
	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: srv.URL,
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	return g
}

func TestGenerateStructured(t *testing.T) {
	t.Parallel()

	mock := mockllm.New()
	mock.Respond(func(prompt string) (string, bool) {
		if strings.Contains(prompt, "ping") {
			return `{"confidence":0.5}`, true
		}
		return "", false
	})
	g := newTestGemini(t, mock, 0)

	raw, err := g.GenerateStructured(context.Background(), Request{
		Instructions: "ping",
		Schema:       testSchema,
	})
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if string(raw) != `{"confidence":0.5}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestGenerateStructured_PerCallTimeout(t *testing.T) {
	t.Parallel()

	stall := 2 * time.Second
	mock := mockllm.New()
	mock.Respond(func(string) (string, bool) {
		time.Sleep(stall)
		return `{"confidence":0.5}`, true
	})
	g := newTestGemini(t, mock, 50*time.Millisecond)

	start := time.Now()
	_, err := g.GenerateStructured(context.Background(), Request{
		Instructions: "stalled",
		Schema:       testSchema,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed >= stall {
		t.Fatalf("call was not bounded by the per-call timeout, took %v", elapsed)
	}
	var te *enrich.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
