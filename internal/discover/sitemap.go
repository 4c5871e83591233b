package discover

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
)

// Common locations checked before falling back to robots.txt declarations.
var commonSitemapPaths = []string{
	"sitemap.xml",
	"sitemap_index.xml",
	"sitemap/",
	"sitemap1.xml",
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// fromSitemaps tries the common sitemap paths and robots.txt Sitemap: lines,
// recursing through sitemap index files up to maxIndexDepth. Entries outside
// the site's registrable domain are discarded.
func (d *Discoverer) fromSitemaps(ctx context.Context, siteURL string) []enrich.DiscoveredURL {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil
	}
	root := base.Scheme + "://" + base.Host + "/"

	candidates := make([]string, 0, len(commonSitemapPaths)+2)
	for _, p := range commonSitemapPaths {
		candidates = append(candidates, root+p)
	}
	candidates = append(candidates, d.robotsSitemaps(ctx, root)...)

	seen := make(map[string]bool)
	var out []enrich.DiscoveredURL
	for _, smURL := range candidates {
		if ctx.Err() != nil {
			return out
		}
		found := d.parseSitemap(ctx, siteURL, smURL, 0, seen)
		out = append(out, found...)
		if len(out) > 0 {
			// One readable sitemap tree is enough; the remaining candidate
			// paths usually alias the same file.
			break
		}
	}
	return out
}

func (d *Discoverer) parseSitemap(ctx context.Context, siteURL, smURL string, depth int, seen map[string]bool) []enrich.DiscoveredURL {
	if depth > d.cfg.MaxIndexDepth {
		return nil
	}
	res, err := d.fetcher.GetWithRetry(ctx, smURL)
	if err != nil {
		return nil
	}

	var out []enrich.DiscoveredURL

	var idx sitemapIndex
	if xml.Unmarshal(res.Body, &idx) == nil && len(idx.Sitemaps) > 0 {
		for _, child := range idx.Sitemaps {
			loc := strings.TrimSpace(child.Loc)
			if loc == "" {
				continue
			}
			out = append(out, d.parseSitemap(ctx, siteURL, loc, depth+1, seen)...)
			if len(out) >= d.cfg.MaxURLs {
				return out[:d.cfg.MaxURLs]
			}
		}
		return out
	}

	var set sitemapURLSet
	if xml.Unmarshal(res.Body, &set) != nil {
		return nil
	}
	for _, entry := range set.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || !SameSite(siteURL, loc) {
			continue
		}
		norm, err := NormalizeURL(loc)
		if err != nil || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, enrich.DiscoveredURL{URL: norm, SourceSitemap: smURL})
		if len(out) >= d.cfg.MaxURLs {
			break
		}
	}
	return out
}

// robotsSitemaps returns sitemap URLs declared in robots.txt.
func (d *Discoverer) robotsSitemaps(ctx context.Context, root string) []string {
	res, err := d.fetcher.GetWithRetry(ctx, root+"robots.txt")
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(res.Body), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if loc != "" {
			out = append(out, loc)
		}
	}
	return out
}
