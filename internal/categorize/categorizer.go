// Package categorize assigns each discovered URL to exactly one content
// category. Cheap path-keyword heuristics run first; only ambiguous URLs are
// sent to the text-understanding capability, in a single batched call.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/llm"
	"google.golang.org/genai"
)

// Categorizer buckets discovered URLs. Capability may be nil, in which case
// ambiguous URLs land in unknown instead of being guessed.
type Categorizer struct {
	capability llm.Capability

	// MinConfidence is the floor below which a URL goes to unknown.
	MinConfidence float64
}

func New(capability llm.Capability, minConfidence float64) *Categorizer {
	if minConfidence <= 0 {
		minConfidence = 0.5
	}
	return &Categorizer{capability: capability, MinConfidence: minConfidence}
}

// Categorize assigns a category to every URL and groups them into a bucket.
// Input order is preserved within each category. Category assignments are
// final for the run; callers must not re-categorize.
func (c *Categorizer) Categorize(ctx context.Context, urls []enrich.DiscoveredURL) (enrich.Bucket, error) {
	assigned := make([]enrich.DiscoveredURL, len(urls))
	var ambiguous []int

	for i, d := range urls {
		cat, conf, tied := HeuristicScore(d.URL)
		if !tied && conf >= c.MinConfidence {
			d.Category = cat
		} else {
			// Ties, weak hits and zero-signal paths all go to the capability;
			// without one they stay unknown rather than guessed.
			d.Category = enrich.CategoryUnknown
			ambiguous = append(ambiguous, i)
		}
		assigned[i] = d
	}

	if len(ambiguous) > 0 && c.capability != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resolved := c.resolveWithCapability(ctx, assigned, ambiguous)
		for idx, cat := range resolved {
			assigned[idx].Category = cat
		}
	}

	bucket := make(enrich.Bucket)
	for _, d := range assigned {
		bucket[d.Category] = append(bucket[d.Category], d)
	}
	return bucket, nil
}

type categorizedURL struct {
	URL        string  `json:"url"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

var categorizationSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"url":      {Type: genai.TypeString},
			"category": {Type: genai.TypeString, Enum: categoryEnum()},
			"confidence": {
				Type: genai.TypeNumber,
			},
		},
		Required: []string{"url", "category", "confidence"},
	},
}

func categoryEnum() []string {
	cats := enrich.ExtractableCategories()
	out := make([]string, 0, len(cats)+1)
	for _, c := range cats {
		out = append(out, string(c))
	}
	return append(out, string(enrich.CategoryUnknown))
}

// resolveWithCapability sends the ambiguous URLs in one batched call and maps
// the response back by URL. Any failure leaves the affected URLs in unknown;
// categorization never fails the run.
func (c *Categorizer) resolveWithCapability(ctx context.Context, assigned []enrich.DiscoveredURL, ambiguous []int) map[int]enrich.Category {
	byURL := make(map[string]int, len(ambiguous))
	urls := make([]string, 0, len(ambiguous))
	for _, idx := range ambiguous {
		byURL[assigned[idx].URL] = idx
		urls = append(urls, assigned[idx].URL)
	}

	payload, err := json.Marshal(urls)
	if err != nil {
		return nil
	}
	raw, err := c.capability.GenerateStructured(ctx, llm.Request{
		Instructions: categorizationInstructions(),
		Input:        "URLs (JSON array): " + string(payload),
		Schema:       categorizationSchema,
	})
	if err != nil {
		return nil
	}

	var items []categorizedURL
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make(map[int]enrich.Category, len(items))
	for _, item := range items {
		idx, ok := byURL[strings.TrimSpace(item.URL)]
		if !ok {
			continue
		}
		cat, err := enrich.ParseCategory(item.Category)
		if err != nil || item.Confidence < c.MinConfidence {
			continue
		}
		out[idx] = cat
	}
	return out
}

func categorizationInstructions() string {
	return fmt.Sprintf(strings.TrimSpace(`
You categorize URLs from a substance-treatment organization's website.
Assign each URL exactly one of these categories: %s.
Use "unknown" for blog posts, news, legal pages and anything low-signal.
Report your confidence in [0,1] for each assignment.
Return ONLY the JSON array required by the schema, one entry per input URL.
`), strings.Join(categoryEnum(), ", "))
}
