package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/fetch"
)

func newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{Timeout: 2 * time.Second, BackoffInitial: time.Millisecond})
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://Example.com/Admissions/", "https://example.com/Admissions"},
		{"http://example.com:80/a?q=1#frag", "http://example.com/a"},
		{"https://example.com/", "https://example.com"},
		{"https://example.com:8443/x", "https://example.com:8443/x"},
	}
	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := NormalizeURL("ftp://example.com/x"); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	d, err := RegistrableDomain("https://www.clinic.example.co.uk/about")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != "example.co.uk" {
		t.Fatalf("unexpected registrable domain: %q", d)
	}
	if !SameSite("https://www.example.com/a", "https://blog.example.com/b") {
		t.Fatal("subdomains of one registrable domain must be same-site")
	}
	if SameSite("https://example.com", "https://other.com") {
		t.Fatal("different domains must not be same-site")
	}
}

func TestDiscover_SitemapIndexRecursion(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/sitemap-pages.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/admissions/</loc></url>
  <url><loc>%s/admissions?utm=1</loc></url>
  <url><loc>https://elsewhere.com/outside</loc></url>
  <url><loc>%s/programs/detox</loc></url>
</urlset>`, srv.URL, srv.URL, srv.URL)
	})

	d := New(newFetcher(), Config{})
	urls, err := d.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 deduped in-domain URLs, got %d: %#v", len(urls), urls)
	}
	for _, u := range urls {
		if strings.Contains(u.URL, "elsewhere.com") {
			t.Fatalf("cross-domain URL survived: %q", u.URL)
		}
		if u.SourceSitemap == "" {
			t.Fatalf("sitemap-sourced URL missing source: %#v", u)
		}
	}
}

func TestDiscover_RobotsSitemapDeclaration(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/hidden-sitemap.xml\n", srv.URL)
	})
	mux.HandleFunc("/hidden-sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s/about-us</loc></url></urlset>`, srv.URL)
	})
	// Everything else (including /sitemap.xml) 404s via the default mux.

	d := New(newFetcher(), Config{})
	urls, err := d.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 1 || !strings.HasSuffix(urls[0].URL, "/about-us") {
		t.Fatalf("expected the robots-declared sitemap URL, got %#v", urls)
	}
}

func TestDiscover_FallbackCrawlBounded(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	html := func(links ...string) string {
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, l := range links {
			fmt.Fprintf(&b, `<a href=%q>x</a>`, l)
		}
		b.WriteString("</body></html>")
		return b.String()
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, html("/admissions", "/programs", "https://elsewhere.com/out"))
		case "/admissions":
			fmt.Fprint(w, html("/admissions/step-1"))
		case "/programs":
			fmt.Fprint(w, html("/programs/deep/very/deep"))
		default:
			fmt.Fprint(w, html())
		}
	})

	d := New(newFetcher(), Config{CrawlDepth: 1, CrawlMaxPages: 10})
	urls, err := d.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make(map[string]int)
	for _, u := range urls {
		got[u.URL] = u.CrawlDepth
		if strings.Contains(u.URL, "elsewhere.com") {
			t.Fatalf("crawl followed cross-domain link: %q", u.URL)
		}
	}
	// Depth 1 crawl: root plus its two in-domain children, nothing deeper.
	if len(got) != 3 {
		t.Fatalf("expected 3 crawled pages, got %d: %#v", len(got), got)
	}
	for u, depth := range got {
		if depth > 1 {
			t.Fatalf("page %q beyond depth bound: %d", u, depth)
		}
	}
}

func TestDiscover_EmptySiteYieldsEmptySet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := New(newFetcher(), Config{CrawlMaxPages: 3})
	urls, err := d.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected empty set, got %#v", urls)
	}
}
