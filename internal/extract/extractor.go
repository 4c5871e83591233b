// Package extract runs the per-category structured extraction stage. Each
// category is a tagged variant dispatched through one uniform routine: fetch
// the category's pages, invoke the text-understanding capability with a
// category-specific schema, validate, and produce a partial record. Adding a
// category means adding a schema, a task prompt, and a decode arm.
package extract

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/fetch"
	"github.com/clearpath-data/rehab-enricher/internal/llm"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// Config bounds per-category extraction cost.
type Config struct {
	// MaxPagesPerCategory caps fetches per category.
	MaxPagesPerCategory int
	// MaxCharsPerPage truncates each page's markdown before prompting.
	MaxCharsPerPage int
}

func (c Config) withDefaults() Config {
	if c.MaxPagesPerCategory <= 0 {
		c.MaxPagesPerCategory = 5
	}
	if c.MaxCharsPerPage <= 0 {
		c.MaxCharsPerPage = 20000
	}
	return c
}

// Extractor fetches category pages and calls the capability. Extractors for
// different categories are independent; the orchestrator runs them
// concurrently and one category's failure never blocks another's.
type Extractor struct {
	fetcher    *fetch.Fetcher
	capability llm.Capability
	cfg        Config
}

func New(f *fetch.Fetcher, capability llm.Capability, cfg Config) *Extractor {
	return &Extractor{fetcher: f, capability: capability, cfg: cfg.withDefaults()}
}

// Result is the outcome of one category's extraction.
type Result struct {
	Category enrich.Category

	// Partial is nil when the category ran but found no evidence, or failed.
	Partial *enrich.PartialRecord

	// Skipped is true when the category had zero reachable URLs, which is
	// distinct from running and finding nothing.
	Skipped bool

	// Unreachable lists URLs that could not be fetched; the orchestrator
	// records them as discovery gaps.
	Unreachable []string

	// Err is the capability/validation failure that ended extraction, if any.
	Err error
}

type pageContent struct {
	url      string
	markdown string
}

// truncate caps s at max bytes, backing up so the cut never splits a
// multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ExtractCategory runs one category end to end. Schema-validation failures
// get exactly one stricter retry; the second failure yields no evidence
// rather than an aborted run.
func (e *Extractor) ExtractCategory(ctx context.Context, s seed.Seed, cat enrich.Category, urls []string) Result {
	res := Result{Category: cat}
	if len(urls) == 0 {
		res.Skipped = true
		return res
	}

	var pages []pageContent
	var sourceURLs []string
	for _, u := range urls {
		if len(pages) >= e.cfg.MaxPagesPerCategory {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		page, err := e.fetcher.Markdown(ctx, u)
		if err != nil {
			res.Unreachable = append(res.Unreachable, u)
			continue
		}
		md := truncate(page.Markdown, e.cfg.MaxCharsPerPage)
		pages = append(pages, pageContent{url: page.URL, markdown: md})
		sourceURLs = append(sourceURLs, page.URL)
	}
	if len(pages) == 0 {
		res.Skipped = true
		return res
	}

	schema := categorySchema(cat)
	if schema == nil {
		res.Err = errors.New("no schema for category " + string(cat))
		return res
	}
	input := pagesInput(pages)

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := e.capability.GenerateStructured(ctx, llm.Request{
			Instructions: instructions(s, cat, attempt > 0),
			Input:        input,
			Schema:       schema,
		})
		if err != nil {
			res.Err = err
			return res
		}
		partial, err := decodeResponse(cat, raw, sourceURLs)
		if err == nil {
			res.Partial = partial
			return res
		}
		res.Err = err
	}
	// Second schema-validation failure: explicit no evidence.
	res.Partial = nil
	return res
}
