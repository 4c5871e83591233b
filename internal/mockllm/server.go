// Package mockllm implements a minimal Gemini-compatible generateContent
// endpoint for local runs and tests. It answers structured-output requests
// with canned JSON chosen by keywords in the prompt.
package mockllm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Call records one generateContent request.
type Call struct {
	Model  string
	Prompt string
}

// Responder inspects the prompt and returns the raw JSON payload to embed in
// the response text, or false to fall through to the next responder.
type Responder func(prompt string) (string, bool)

// Server is the mock capability service.
type Server struct {
	mu         sync.Mutex
	calls      []Call
	responders []Responder
	failNext   int
	failStatus int
}

func New() *Server {
	s := &Server{failStatus: http.StatusTooManyRequests}
	s.responders = []Responder{defaultResponder}
	return s
}

// Respond prepends a responder, taking precedence over the canned defaults.
func (s *Server) Respond(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders = append([]Responder{r}, s.responders...)
}

// FailNext makes the next n requests fail with the given status before any
// responder runs. Used to exercise transient-error retry paths.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

// Calls returns a copy of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler serves POST /v1beta/models/<model>:generateContent.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleGenerate)
	return mux
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	model := modelFromPath(r.URL.Path)

	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "parse body", http.StatusBadRequest)
		return
	}
	prompt := flattenPrompt(req)

	s.mu.Lock()
	s.calls = append(s.calls, Call{Model: model, Prompt: prompt})
	if s.failNext > 0 {
		s.failNext--
		status := s.failStatus
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"status":"UNAVAILABLE","message":"mock failure"}}`, status)
		return
	}
	responders := s.responders
	s.mu.Unlock()

	payload := "{}"
	for _, respond := range responders {
		if out, ok := respond(prompt); ok {
			payload = out
			break
		}
	}

	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": payload}},
				},
				"finishReason": "STOP",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func modelFromPath(p string) string {
	// Path shape: /v1beta/models/<model>:generateContent
	i := strings.LastIndex(p, "/")
	tail := p[i+1:]
	return strings.TrimSuffix(tail, ":generateContent")
}

func flattenPrompt(req generateRequest) string {
	var b strings.Builder
	if req.SystemInstruction != nil {
		for _, p := range req.SystemInstruction.Parts {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// defaultResponder returns plausible canned payloads keyed off prompt
// keywords, enough for an end-to-end local run against the mock.
func defaultResponder(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "assign each url"):
		return `[]`, true
	case strings.Contains(lower, "extract admissions details"):
		return `{"confidence":0.8,"phone":"555-0100","process_summary":"Call to start a confidential assessment."}`, true
	case strings.Contains(lower, "treatment programs and levels of care"):
		return `{"confidence":0.8,"programs":[{"slug":"residential","display_name":"Residential Treatment"}]}`, true
	case strings.Contains(lower, "accepted insurance payers"):
		return `{"confidence":0.8,"insurance_payers":[{"name":"Aetna"}]}`, true
	case strings.Contains(lower, "facility campus or location"):
		return `{"confidence":0.7,"campuses":[{"name":"Main Campus","city":"Boise","state":"ID"}]}`, true
	case strings.Contains(lower, "parent or owning company"):
		return `{"confidence":0.7,"parent_company":{"name":"Mock Health Group"}}`, true
	case strings.Contains(lower, "organization metadata"):
		return `{"confidence":0.8,"name":"Mock Recovery Center","description":"A mock treatment facility.","city":"Boise","state":"ID"}`, true
	}
	return "", false
}
