// Package discover enumerates candidate URLs for a confirmed site: sitemap
// trees first, then a bounded same-domain crawl when no sitemap is usable.
package discover

import (
	"bytes"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/fetch"
)

// Config bounds discovery work per site.
type Config struct {
	// MaxIndexDepth caps recursion through sitemap index-of-index files.
	MaxIndexDepth int
	// CrawlDepth and CrawlMaxPages bound the fallback BFS crawl.
	CrawlDepth    int
	CrawlMaxPages int
	// MaxURLs caps the total discovered set.
	MaxURLs int
}

func (c Config) withDefaults() Config {
	if c.MaxIndexDepth <= 0 {
		c.MaxIndexDepth = 2
	}
	if c.CrawlDepth <= 0 {
		c.CrawlDepth = 2
	}
	if c.CrawlMaxPages <= 0 {
		c.CrawlMaxPages = 50
	}
	if c.MaxURLs <= 0 {
		c.MaxURLs = 500
	}
	return c
}

// Discoverer finds in-domain URLs for a confirmed site.
type Discoverer struct {
	fetcher *fetch.Fetcher
	cfg     Config
}

func New(f *fetch.Fetcher, cfg Config) *Discoverer {
	return &Discoverer{fetcher: f, cfg: cfg.withDefaults()}
}

// Discover returns the deduplicated set of in-domain URLs. An empty set is a
// valid result (the orchestrator turns it into Failed(no-data)); an error is
// returned only for context cancellation.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) ([]enrich.DiscoveredURL, error) {
	if urls := d.fromSitemaps(ctx, siteURL); len(urls) > 0 {
		return urls, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.crawl(ctx, siteURL)
}

// crawl is a breadth-first walk restricted to the site's registrable domain.
// Cross-domain links and redirect targets are not followed.
func (d *Discoverer) crawl(ctx context.Context, siteURL string) ([]enrich.DiscoveredURL, error) {
	start, err := NormalizeURL(siteURL)
	if err != nil {
		return nil, nil
	}

	type node struct {
		url   string
		depth int
	}
	queue := []node{{url: start, depth: 0}}
	seen := map[string]bool{start: true}
	fetched := 0

	var out []enrich.DiscoveredURL
	for len(queue) > 0 && fetched < d.cfg.CrawlMaxPages && len(out) < d.cfg.MaxURLs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		n := queue[0]
		queue = queue[1:]

		res, err := d.fetcher.GetWithRetry(ctx, n.url)
		fetched++
		if err != nil || !res.IsHTML() {
			continue
		}
		out = append(out, enrich.DiscoveredURL{URL: n.url, CrawlDepth: n.depth})

		if n.depth >= d.cfg.CrawlDepth {
			continue
		}
		for _, link := range extractLinks(res) {
			if !SameSite(siteURL, link) {
				continue
			}
			norm, err := NormalizeURL(link)
			if err != nil || seen[norm] {
				continue
			}
			seen[norm] = true
			queue = append(queue, node{url: norm, depth: n.depth + 1})
		}
	}
	return out, nil
}

func extractLinks(res *fetch.Result) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(res.FinalURL)
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		out = append(out, base.ResolveReference(ref).String())
	})
	return out
}
