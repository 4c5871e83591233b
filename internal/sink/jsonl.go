package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/clearpath-data/rehab-enricher/internal/pipeline"
)

// line is one JSONL output row. Exactly one of Record or Failure is set.
type line struct {
	Kind    string         `json:"kind"`
	Record  *pipeline.Run  `json:"record,omitempty"`
	Failure *FailureReport `json:"failure,omitempty"`
}

// JSONL writes one JSON object per terminal run to a local file, records and
// failure reports interleaved in completion order. Safe for concurrent Write.
type JSONL struct {
	mu  sync.Mutex
	w   *bufio.Writer
	c   io.Closer
	enc *json.Encoder
}

func NewJSONL(path string) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return newJSONL(f, f), nil
}

func newJSONL(w io.Writer, c io.Closer) *JSONL {
	bw := bufio.NewWriter(w)
	return &JSONL{w: bw, c: c, enc: json.NewEncoder(bw)}
}

func (s *JSONL) Write(ctx context.Context, run *pipeline.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l line
	if run.Succeeded() {
		l = line{Kind: "record", Record: run}
	} else {
		fr := failureReport(run)
		l = line{Kind: "failure", Failure: &fr}
	}
	if err := s.enc.Encode(l); err != nil {
		return fmt.Errorf("write output line: %w", err)
	}
	return nil
}

func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}
