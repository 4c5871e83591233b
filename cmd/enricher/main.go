package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/clearpath-data/rehab-enricher/internal/categorize"
	"github.com/clearpath-data/rehab-enricher/internal/config"
	"github.com/clearpath-data/rehab-enricher/internal/confirm"
	"github.com/clearpath-data/rehab-enricher/internal/discover"
	"github.com/clearpath-data/rehab-enricher/internal/extract"
	"github.com/clearpath-data/rehab-enricher/internal/fetch"
	"github.com/clearpath-data/rehab-enricher/internal/llm"
	"github.com/clearpath-data/rehab-enricher/internal/pipeline"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
	"github.com/clearpath-data/rehab-enricher/internal/sink"
	"github.com/clearpath-data/rehab-enricher/internal/util"
	"github.com/clearpath-data/rehab-enricher/internal/version"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		fmt.Println(version.Current)
		return
	case "local":
		os.Exit(runLocal(ctx, os.Args[2:]))
	case "api":
		os.Exit(runAPI(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runLocal(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Optional YAML config file path")
	inputPath := fs.String("input", "", "Seed CSV file path (npi_number + organization_name columns required)")
	outputPath := fs.String("output", "", "JSONL output file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "local requires --input and --output")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return configError(err)
	}
	out, err := sink.NewJSONL(*outputPath)
	if err != nil {
		return runError(err)
	}
	return runBatch(ctx, cfg, *inputPath, out)
}

func runAPI(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Optional YAML config file path")
	inputPath := fs.String("input", "", "Seed CSV file path (npi_number + organization_name columns required)")
	baseURL := fs.String("base-url", "", "Downstream API base URL (env: SINK_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "api requires --input")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return configError(err)
	}
	if *baseURL != "" {
		cfg.Sink.BaseURL = *baseURL
	}
	out, err := sink.NewAPI(cfg.Sink.BaseURL, cfg.Sink.Token)
	if err != nil {
		return configError(err)
	}
	return runBatch(ctx, cfg, *inputPath, out)
}

func runBatch(ctx context.Context, cfg config.Config, inputPath string, out sink.Sink) int {
	f, err := os.Open(inputPath)
	if err != nil {
		return runError(err)
	}
	seeds, err := seed.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		return runError(err)
	}

	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return configError(err)
	}

	runs, err := orch.RunAll(ctx, seeds, pipeline.PoolOptions{Workers: cfg.Run.Workers}, func(r *pipeline.Run) error {
		return sink.WriteWithRetry(ctx, out, r, 2)
	})
	closeErr := out.Close()
	if err != nil {
		return runError(err)
	}
	if closeErr != nil {
		return runError(closeErr)
	}

	var succeeded, failed int
	for _, r := range runs {
		if r.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	fmt.Printf("processed %d organizations: %d enriched, %d failed\n", len(runs), succeeded, failed)
	return 0
}

func buildOrchestrator(ctx context.Context, cfg config.Config) (*pipeline.Orchestrator, error) {
	var netLimiter *rate.Limiter
	if cfg.Fetch.RateLimitRPS > 0 {
		netLimiter = rate.NewLimiter(rate.Limit(cfg.Fetch.RateLimitRPS), 1)
	}
	fetcher := fetch.New(fetch.Config{
		Timeout:      cfg.Fetch.Timeout.Std(),
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Retries:      cfg.Fetch.MaxRetries,
		Limiter:      netLimiter,
	})

	var quota *rate.Limiter
	if cfg.Gemini.QuotaRPS > 0 {
		quota = rate.NewLimiter(rate.Limit(cfg.Gemini.QuotaRPS), 1)
	}
	capability, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout.Std(),
		Limiter: quota,
	})
	if err != nil {
		return nil, err
	}

	cats, err := cfg.Categories()
	if err != nil {
		return nil, err
	}

	return pipeline.NewOrchestrator(
		confirm.DomainGuesser{},
		confirm.New(fetcher, cfg.Confirm.Threshold),
		discover.New(fetcher, discover.Config{
			MaxIndexDepth: cfg.Discover.MaxIndexDepth,
			CrawlDepth:    cfg.Discover.CrawlDepth,
			CrawlMaxPages: cfg.Discover.CrawlMaxPages,
			MaxURLs:       cfg.Discover.MaxURLs,
		}),
		categorize.New(capability, cfg.Categorize.MinConfidence),
		extract.New(fetcher, capability, extract.Config{
			MaxPagesPerCategory: cfg.Extract.MaxPagesPerCategory,
			MaxCharsPerPage:     cfg.Extract.MaxCharsPerPage,
		}),
		pipeline.Options{
			RunTimeout: cfg.Run.Timeout.Std(),
			Categories: cats,
		},
	), nil
}

func configError(err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
	return 2
}

func runError(err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "run failed: %s\n", util.RedactSecrets(err.Error()))
	return 1
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `enricher: rehab organization website enrichment pipeline

Usage:
  enricher <command> [flags]

Commands:
  local    Enrich a seed CSV and write JSONL output locally
  api      Enrich a seed CSV and post results to the downstream API
  version  Print the version

Examples:
  enricher local --input seeds.csv --output enriched.jsonl
  enricher api --input seeds.csv --base-url https://collector.internal

Environment:
  GEMINI_API_KEY     Gemini API key (required)
  GEMINI_MODEL       Gemini model name (default from config)
  GEMINI_BASE_URL    Optional base URL override (mock server/proxies)
  SINK_BASE_URL      Downstream API base URL (api command)
  SINK_TOKEN         Downstream API bearer token
  CONFIRM_THRESHOLD, CATEGORIZE_MIN_CONFIDENCE, FETCH_RATE_LIMIT_RPS,
  FETCH_MAX_RETRIES, FETCH_TIMEOUT, EXTRACT_MAX_PAGES, WORKERS, RUN_TIMEOUT
                     Override the matching config file values

`)
}
