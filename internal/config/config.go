// Package config loads runtime configuration: built-in defaults, then an
// optional YAML file, then environment overrides. Secrets (API keys, sink
// tokens) come from the environment only and never from the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
)

// Duration decodes YAML strings like "15s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Fetch      Fetch      `yaml:"fetch"`
	Confirm    Confirm    `yaml:"confirm"`
	Discover   Discover   `yaml:"discover"`
	Categorize Categorize `yaml:"categorize"`
	Extract    Extract    `yaml:"extract"`
	Run        Run        `yaml:"run"`
	Gemini     Gemini     `yaml:"gemini"`
	Sink       SinkConf   `yaml:"sink"`
}

type Fetch struct {
	Timeout      Duration `yaml:"timeout"`
	UserAgent    string   `yaml:"user_agent"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	MaxRetries   int      `yaml:"max_retries"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
}

type Confirm struct {
	// Threshold is the minimum confidence to accept a candidate site.
	Threshold float64 `yaml:"threshold"`
}

type Discover struct {
	MaxIndexDepth int `yaml:"max_index_depth"`
	CrawlDepth    int `yaml:"crawl_depth"`
	CrawlMaxPages int `yaml:"crawl_max_pages"`
	MaxURLs       int `yaml:"max_urls"`
}

type Categorize struct {
	MinConfidence float64 `yaml:"min_confidence"`
}

type Extract struct {
	MaxPagesPerCategory int `yaml:"max_pages_per_category"`
	MaxCharsPerPage     int `yaml:"max_chars_per_page"`
}

type Run struct {
	Timeout Duration `yaml:"timeout"`
	Workers int      `yaml:"workers"`

	// Categories is the extraction order and merge tie-break priority.
	Categories []string `yaml:"categories"`
}

type Gemini struct {
	// APIKey is env-only (GEMINI_API_KEY); it has no YAML key.
	APIKey   string   `yaml:"-"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`
	QuotaRPS float64  `yaml:"quota_rps"`
	Timeout  Duration `yaml:"timeout"`
}

type SinkConf struct {
	BaseURL string `yaml:"base_url"`
	// Token is env-only (SINK_TOKEN).
	Token string `yaml:"-"`
}

// Default is the configuration used when no file and no env overrides exist.
// Threshold and confidence defaults are calibration-pending starting points.
func Default() Config {
	return Config{
		Fetch: Fetch{
			Timeout:      Duration(15 * time.Second),
			UserAgent:    "rehab-enricher/1.0",
			MaxBodyBytes: 4 << 20,
			MaxRetries:   2,
			RateLimitRPS: 4,
		},
		Confirm:  Confirm{Threshold: 0.6},
		Discover: Discover{MaxIndexDepth: 2, CrawlDepth: 2, CrawlMaxPages: 50, MaxURLs: 500},
		Categorize: Categorize{
			MinConfidence: 0.5,
		},
		Extract: Extract{MaxPagesPerCategory: 5, MaxCharsPerPage: 20000},
		Run: Run{
			Timeout: Duration(5 * time.Minute),
			Workers: 4,
		},
		Gemini: Gemini{
			Model:    "gemini-2.0-flash",
			QuotaRPS: 2,
			Timeout:  Duration(60 * time.Second),
		},
	}
}

// Load builds the effective configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Confirm.Threshold, err = envFloat("CONFIRM_THRESHOLD", c.Confirm.Threshold); err != nil {
		return err
	}
	if c.Categorize.MinConfidence, err = envFloat("CATEGORIZE_MIN_CONFIDENCE", c.Categorize.MinConfidence); err != nil {
		return err
	}
	if c.Fetch.RateLimitRPS, err = envFloat("FETCH_RATE_LIMIT_RPS", c.Fetch.RateLimitRPS); err != nil {
		return err
	}
	if c.Fetch.MaxRetries, err = envInt("FETCH_MAX_RETRIES", c.Fetch.MaxRetries); err != nil {
		return err
	}
	if c.Fetch.Timeout, err = envDuration("FETCH_TIMEOUT", c.Fetch.Timeout); err != nil {
		return err
	}
	if c.Extract.MaxPagesPerCategory, err = envInt("EXTRACT_MAX_PAGES", c.Extract.MaxPagesPerCategory); err != nil {
		return err
	}
	if c.Run.Workers, err = envInt("WORKERS", c.Run.Workers); err != nil {
		return err
	}
	if c.Run.Timeout, err = envDuration("RUN_TIMEOUT", c.Run.Timeout); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		c.Gemini.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SINK_BASE_URL")); v != "" {
		c.Sink.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SINK_TOKEN")); v != "" {
		c.Sink.Token = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Confirm.Threshold <= 0 || c.Confirm.Threshold > 1 {
		return fmt.Errorf("confirm threshold must be in (0,1], got %g", c.Confirm.Threshold)
	}
	if c.Categorize.MinConfidence < 0 || c.Categorize.MinConfidence > 1 {
		return fmt.Errorf("categorize min confidence must be in [0,1], got %g", c.Categorize.MinConfidence)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Run.Workers)
	}
	for _, raw := range c.Run.Categories {
		if _, err := ParseCategories([]string{raw}); err != nil {
			return err
		}
	}
	return nil
}

// Categories resolves the configured extraction order, defaulting to every
// extractable category.
func (c *Config) Categories() ([]enrich.Category, error) {
	if len(c.Run.Categories) == 0 {
		return enrich.ExtractableCategories(), nil
	}
	return ParseCategories(c.Run.Categories)
}

// ParseCategories maps config strings onto categories, rejecting unknown
// names and the unknown bucket itself.
func ParseCategories(raw []string) ([]enrich.Category, error) {
	out := make([]enrich.Category, 0, len(raw))
	for _, r := range raw {
		c, err := enrich.ParseCategory(r)
		if err != nil {
			return nil, err
		}
		if c == enrich.CategoryUnknown {
			return nil, fmt.Errorf("category %q is not extractable", r)
		}
		out = append(out, c)
	}
	return out, nil
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback Duration) (Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return Duration(out), nil
}
