package mockllm

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postGenerate(t *testing.T, url, prompt string) *http.Response {
	t.Helper()
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}
	b, _ := json.Marshal(body)
	resp, err := http.Post(url+"/v1beta/models/test-model:generateContent", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func responseText(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		t.Fatal("empty candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text
}

func TestCannedResponses(t *testing.T) {
	t.Parallel()
	s := New()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := postGenerate(t, srv.URL, "Extract admissions details: intake phone and email")
	text := responseText(t, resp)
	if !strings.Contains(text, "process_summary") {
		t.Errorf("admissions prompt got %q", text)
	}

	resp = postGenerate(t, srv.URL, "Extract the treatment programs and levels of care offered.")
	text = responseText(t, resp)
	if !strings.Contains(text, `"programs"`) {
		t.Errorf("programs prompt got %q", text)
	}

	calls := s.Calls()
	if len(calls) != 2 {
		t.Fatalf("recorded %d calls, want 2", len(calls))
	}
	if calls[0].Model != "test-model" {
		t.Errorf("model = %q", calls[0].Model)
	}
}

func TestCustomResponderTakesPrecedence(t *testing.T) {
	t.Parallel()
	s := New()
	s.Respond(func(prompt string) (string, bool) {
		if strings.Contains(prompt, "admissions") {
			return `{"confidence":0.99,"phone":"555-0199"}`, true
		}
		return "", false
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := postGenerate(t, srv.URL, "Extract admissions details")
	if text := responseText(t, resp); !strings.Contains(text, "555-0199") {
		t.Errorf("custom responder bypassed, got %q", text)
	}
}

func TestFailNext(t *testing.T) {
	t.Parallel()
	s := New()
	s.FailNext(1, http.StatusTooManyRequests)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := postGenerate(t, srv.URL, "Extract admissions details")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("first call status = %d, want 429", resp.StatusCode)
	}

	resp = postGenerate(t, srv.URL, "Extract admissions details")
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second call status = %d, want 200", resp.StatusCode)
	}
}
