package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"perspectivelens/internal/config"
	"perspectivelens/internal/contentfetcher"
	"perspectivelens/internal/core"
	"perspectivelens/internal/logger"
	"perspectivelens/internal/modelbackend"
	"perspectivelens/internal/pipeline"
	"perspectivelens/internal/pipelinecache"
	"perspectivelens/internal/progress"
	"perspectivelens/internal/searchclient"
)

// DefaultModel is the Gemini model every constructed backend requests.
// analysis.models supplies sampling parameters only, not a model name.
const DefaultModel = "gemini-flash-lite-latest"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "perspectivelens",
	Short: "Compare international news coverage of a single story across countries.",
	Long: `perspectivelens takes one article's URL and title, searches for
how other countries' news sources are covering the same story, extracts
and scores their content, and runs a four-stage cross-source analysis:
context & trust, consensus facts, factual disputes, and perspective
differences.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.perspectivelens.yaml)")
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("url", "", "URL of the input article (required)")
	analyzeCmd.Flags().String("title", "", "title of the input article (required)")
	analyzeCmd.Flags().String("source", "", "name of the input article's source")
	analyzeCmd.Flags().String("language", "", "declared language of the input article (ISO 639-1); detected if omitted")
	analyzeCmd.Flags().Duration("timeout", 2*time.Minute, "overall wall-clock timeout for the run")
	_ = analyzeCmd.MarkFlagRequired("url")
	_ = analyzeCmd.MarkFlagRequired("title")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full pipeline over one article and print the resulting artifact as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		title, _ := cmd.Flags().GetString("title")
		source, _ := cmd.Flags().GetString("source")
		language, _ := cmd.Flags().GetString("language")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.SetLevel(cfg.Logging.Level)
		if issues := cfg.Validate(); len(issues) > 0 {
			logger.Warn("configuration issues: " + strings.Join(issues, "; "))
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		bus := progress.NewBus()
		go printProgress(bus)
		defer bus.Close()

		deps, err := buildDependencies(ctx, cfg, bus)
		if err != nil {
			return fmt.Errorf("building dependencies: %w", err)
		}

		article := core.Article{URL: url, Title: title, Source: source, DeclaredLanguage: language}

		var cacheKey string
		if cfg.Cache.Enabled {
			cacheKey = pipelinecache.Key(article.URL, countryCodes(cfg.Search.Countries))
			if cached, ok := resultCache(cfg).Get(cacheKey); ok {
				logger.Info("serving cached artifact for " + article.URL)
				return encodeArtifact(cached)
			}
		}

		artifact, err := pipeline.Analyze(ctx, article, cfg, deps)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if cfg.Cache.Enabled {
			resultCache(cfg).Put(cacheKey, artifact)
		}

		return encodeArtifact(artifact)
	},
}

var cacheOnce sync.Once
var cacheInstance *pipelinecache.Cache

// resultCache lazily builds the process-lifetime cache on first use, sized
// by the configured TTL.
func resultCache(cfg *config.Config) *pipelinecache.Cache {
	cacheOnce.Do(func() {
		cacheInstance = pipelinecache.New(cfg.Cache.TTL)
	})
	return cacheInstance
}

// countryCodes extracts the configured country codes in catalog order, for
// use in the cache key.
func countryCodes(countries []core.CountrySpec) []string {
	codes := make([]string, len(countries))
	for i, c := range countries {
		codes[i] = c.Code
	}
	return codes
}

// encodeArtifact writes artifact to stdout as indented JSON.
func encodeArtifact(artifact *core.AnalysisArtifact) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(artifact)
}

// buildDependencies wires the concrete collaborators used outside of
// tests: a syndicated-feed SearchClient, the HTTP ContentFetcher, and the
// two-provider Gemini fallback chain. LanguageDetector/Translator are
// left nil; the QueryPlanner falls back to its heuristic detector and
// uses the original title when no translator is configured.
func buildDependencies(ctx context.Context, cfg *config.Config, bus *progress.Bus) (pipeline.Dependencies, error) {
	backends, err := buildBackends(ctx, cfg)
	if err != nil {
		return pipeline.Dependencies{}, err
	}

	chain := &modelbackend.FallbackChain{
		Backends:       backends,
		Cache:          modelbackend.NewAvailabilityCache(time.Minute),
		RetryAttempts:  cfg.Analysis.RetryAttempts,
		RetryBaseDelay: cfg.Analysis.RetryBaseDelay,
	}

	return pipeline.Dependencies{
		SearchClient:   searchclient.New(cfg.Search.Endpoint),
		ContentFetcher: pipeline.NewContentFetcher(contentfetcher.New()),
		Chain:          chain,
		Bus:            bus,
	}, nil
}

// buildBackends constructs one modelbackend.Backend per entry in
// analysis.preferred_models, in order, skipping any that fail to
// construct (e.g. a missing API key) and warning instead of failing
// outright — the fallback chain only needs one surviving backend.
func buildBackends(ctx context.Context, cfg *config.Config) ([]modelbackend.Backend, error) {
	var backends []modelbackend.Backend
	for _, id := range cfg.Analysis.PreferredModels {
		switch id {
		case "gemini":
			b, err := modelbackend.NewGemini(ctx, cfg.Gemini.APIKey, DefaultModel)
			if err != nil {
				logger.Warn("gemini backend unavailable: " + err.Error())
				continue
			}
			backends = append(backends, b)
		case "geminilegacy":
			b, err := modelbackend.NewGeminiLegacy(ctx, cfg.Gemini.LegacyAPIKey, DefaultModel)
			if err != nil {
				logger.Warn("geminilegacy backend unavailable: " + err.Error())
				continue
			}
			backends = append(backends, b)
		default:
			logger.Warn("unknown backend identifier in analysis.preferred_models: " + id)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no configured backend could be constructed")
	}
	return backends, nil
}

// printProgress renders each event to stderr as it arrives, until the bus
// is closed.
func printProgress(bus *progress.Bus) {
	for e := range bus.Events() {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s %s\n", e.StageID, e.Step, e.Status, e.Message)
	}
}
