package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confirm.Threshold != 0.6 {
		t.Errorf("Confirm.Threshold = %g", cfg.Confirm.Threshold)
	}
	if cfg.Categorize.MinConfidence != 0.5 {
		t.Errorf("Categorize.MinConfidence = %g", cfg.Categorize.MinConfidence)
	}
	if cfg.Fetch.Timeout.Std() != 15*time.Second {
		t.Errorf("Fetch.Timeout = %s", cfg.Fetch.Timeout.Std())
	}
	cats, err := cfg.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 6 {
		t.Errorf("default categories = %v", cats)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
confirm:
  threshold: 0.75
discover:
  crawl_max_pages: 10
run:
  timeout: 2m
  categories: [programs, about]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confirm.Threshold != 0.75 {
		t.Errorf("Confirm.Threshold = %g", cfg.Confirm.Threshold)
	}
	if cfg.Discover.CrawlMaxPages != 10 {
		t.Errorf("Discover.CrawlMaxPages = %d", cfg.Discover.CrawlMaxPages)
	}
	if cfg.Discover.MaxURLs != 500 {
		t.Errorf("unset file keys must keep defaults, MaxURLs = %d", cfg.Discover.MaxURLs)
	}
	if cfg.Run.Timeout.Std() != 2*time.Minute {
		t.Errorf("Run.Timeout = %s", cfg.Run.Timeout.Std())
	}
	cats, err := cfg.Categories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0] != enrich.CategoryPrograms || cats[1] != enrich.CategoryAbout {
		t.Errorf("categories = %v", cats)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIRM_THRESHOLD", "0.9")
	t.Setenv("WORKERS", "8")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confirm.Threshold != 0.9 {
		t.Errorf("Confirm.Threshold = %g", cfg.Confirm.Threshold)
	}
	if cfg.Run.Workers != 8 {
		t.Errorf("Run.Workers = %d", cfg.Run.Workers)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("Gemini.APIKey not taken from env")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CONFIRM_THRESHOLD": "1.5",
		"WORKERS":           "0",
	}
	for varName, val := range cases {
		t.Run(varName, func(t *testing.T) {
			t.Setenv(varName, val)
			if _, err := Load(""); err == nil {
				t.Errorf("Load accepted %s=%s", varName, val)
			}
		})
	}
}

func TestParseCategoriesRejectsUnknown(t *testing.T) {
	if _, err := ParseCategories([]string{"programs", "unknown"}); err == nil {
		t.Error("unknown bucket must not be configurable as extractable")
	}
	if _, err := ParseCategories([]string{"pricing"}); err == nil {
		t.Error("unrecognized name must be rejected")
	}
}
