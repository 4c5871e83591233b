package sink

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/util"
)

// apiErrorEnvelope is the downstream API's standard error body. Extra fields
// are ignored.
type apiErrorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// HTTPError is a sanitized summary of a non-2xx downstream API response.
//
// Raw response bodies are never carried whole: they can echo tokens or PII.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	ErrorCode  string
	Message    string
	RequestID  string

	// Snippet is a redacted, truncated hint for non-envelope responses.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "sink http error"
	}
	parts := []string{
		fmt.Sprintf("sink api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if v := strings.TrimSpace(e.ErrorCode); v != "" {
		parts = append(parts, "errorCode="+v)
	}
	if v := strings.TrimSpace(e.Message); v != "" {
		parts = append(parts, "message="+v)
	}
	if v := strings.TrimSpace(e.RequestID); v != "" {
		parts = append(parts, "requestId="+v)
	}
	if v := strings.TrimSpace(e.Snippet); v != "" {
		parts = append(parts, "body="+v)
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env apiErrorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		h.ErrorCode = strings.TrimSpace(env.ErrorCode)
		h.Message = util.RedactSecrets(env.Message)
		h.RequestID = strings.TrimSpace(env.RequestID)
		if h.ErrorCode != "" || h.Message != "" || h.RequestID != "" {
			return h
		}
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
