// Package llm wraps the text-understanding capability behind a narrow
// structured-output contract. The capability is a black box: callers supply
// instructions, input text and an output schema, and get raw JSON back (or an
// error). Decoding, schema validation and retry policy belong to the caller.
package llm

import (
	"context"

	"google.golang.org/genai"
)

// Request is one structured-generation call.
type Request struct {
	// Instructions frame the task and carry grounding context (organization
	// name, location, category).
	Instructions string
	// Input is the content to reason over: markdown pages, URL lists.
	Input string
	// Schema constrains the response shape.
	Schema *genai.Schema
}

// Capability produces JSON conforming to the request schema.
type Capability interface {
	GenerateStructured(ctx context.Context, req Request) ([]byte, error)
}
