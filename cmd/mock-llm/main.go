package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/clearpath-data/rehab-enricher/internal/mockllm"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8787", "Listen address")
	flag.Parse()

	s := mockllm.New()
	fmt.Printf("mock-llm listening on http://%s (set GEMINI_BASE_URL to use it)\n", *addr)
	if err := http.ListenAndServe(*addr, s.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "mock-llm: %v\n", err)
		os.Exit(1)
	}
}
