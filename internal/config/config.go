// Package config defines the typed, validated configuration record the
// pipeline is built once from at the start of a call. Validation produces
// a list of human-readable issues rather than failing eagerly, so the CLI
// can report every problem at once.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"perspectivelens/internal/core"
)

// QualityThresholds configures the Extractor's per-item checks:
// MinContentLength is the shortest body counted as a successful extraction
// and MinQualityScore the score below which a low-quality retry is made.
// MaxContentLength, MinWordCount and MaxHTMLRatio are loaded but not read
// by any stage.
type QualityThresholds struct {
	MinContentLength int     `mapstructure:"min_content_length"`
	MaxContentLength int     `mapstructure:"max_content_length"`
	MinWordCount     int     `mapstructure:"min_word_count"`
	MaxHTMLRatio     float64 `mapstructure:"max_html_ratio"`
	MinQualityScore  float64 `mapstructure:"min_quality_score"`
}

// SearchConfig configures the Dispatcher (component B).
type SearchConfig struct {
	Countries     []core.CountrySpec `mapstructure:"countries"`
	Endpoint      string             `mapstructure:"endpoint"`
	TimeoutMs     int                `mapstructure:"timeout_ms"`
	RetryAttempts int                `mapstructure:"retry_attempts"`
}

// ArticleSelection configures the Selector (component C).
type ArticleSelection struct {
	PerCountry       map[string]int `mapstructure:"per_country"`
	BufferPerCountry int            `mapstructure:"buffer_per_country"`
	MaxForAnalysis   int            `mapstructure:"max_for_analysis"`
	AllowFallback    bool           `mapstructure:"allow_fallback"`
}

// ExtractionConfig configures the Extractor (component D).
type ExtractionConfig struct {
	Timeout           time.Duration     `mapstructure:"timeout"`
	BatchSize         int               `mapstructure:"batch_size"`
	RetryLowQuality   bool              `mapstructure:"retry_low_quality"`
	QualityThresholds QualityThresholds `mapstructure:"quality_thresholds"`
}

// ModelParams are the per-model knobs the Analyzer passes through to a
// ModelBackend without interpreting.
type ModelParams struct {
	Temperature    float32 `mapstructure:"temperature"`
	TopK           int32   `mapstructure:"top_k"`
	TopP           float32 `mapstructure:"top_p"`
	ThinkingBudget int32   `mapstructure:"thinking_budget"`
}

// CompressionLevel is a hint passed to the backend only; the core never
// compresses text itself.
type CompressionLevel string

const (
	CompressionShort  CompressionLevel = "short"
	CompressionMedium CompressionLevel = "medium"
	CompressionLong   CompressionLevel = "long"
)

// AnalysisConfig configures the Analyzer (component E).
type AnalysisConfig struct {
	ModelProvider     string                 `mapstructure:"model_provider"`
	PreferredModels   []string               `mapstructure:"preferred_models"`
	Models            map[string]ModelParams `mapstructure:"models"`
	CompressionLevel  CompressionLevel       `mapstructure:"compression_level"`
	RetryAttempts     int                    `mapstructure:"retry_attempts"`
	RetryBaseDelay    time.Duration          `mapstructure:"retry_base_delay"`
	RetryFactor       float64                `mapstructure:"retry_factor"`
}

// Validation holds content thresholds separate from the per-item
// extraction thresholds. They are loaded and defaulted, but no pipeline
// stage reads them: articles reach the Analyzer without being checked
// against these values.
type Validation struct {
	MinContentLength int     `mapstructure:"min_content_length"`
	MinWordCount     int     `mapstructure:"min_word_count"`
	MaxContentLength int     `mapstructure:"max_content_length"`
	MinQualityScore  float64 `mapstructure:"min_quality_score"`
}

// Gemini holds credentials and defaults shared by both modelbackend
// implementations.
type Gemini struct {
	APIKey       string `mapstructure:"api_key"`
	LegacyAPIKey string `mapstructure:"legacy_api_key"`
}

// Cache configures the optional, CLI-level result cache. The core
// Analyze function never reads this — it remains stateless between runs.
type Cache struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Logging configures the zerolog-based logger.
type Logging struct {
	Level string `mapstructure:"level"`
}

// Config is the top-level, typed configuration record for one pipeline
// call.
type Config struct {
	Search           SearchConfig     `mapstructure:"search"`
	ArticleSelection ArticleSelection `mapstructure:"article_selection"`
	Extraction       ExtractionConfig `mapstructure:"extraction"`
	Analysis         AnalysisConfig   `mapstructure:"analysis"`
	Validation       Validation       `mapstructure:"validation"`
	Gemini           Gemini           `mapstructure:"gemini"`
	Cache            Cache            `mapstructure:"cache"`
	Logging          Logging          `mapstructure:"logging"`
}

// DefaultCountries is the catalog used when no config file overrides it.
// Normalizes the teacher's duplicated-catalog inconsistency (spec.md §9)
// into one canonical list.
func DefaultCountries() []core.CountrySpec {
	return []core.CountrySpec{
		{Code: "US", Name: "United States", SearchLanguage: "en"},
		{Code: "GB", Name: "United Kingdom", SearchLanguage: "en"},
		{Code: "BR", Name: "Brazil", SearchLanguage: "pt"},
		{Code: "DE", Name: "Germany", SearchLanguage: "de"},
		{Code: "FR", Name: "France", SearchLanguage: "fr"},
		{Code: "IN", Name: "India", SearchLanguage: "en"},
		{Code: "JP", Name: "Japan", SearchLanguage: "ja"},
		{Code: "CN", Name: "China", SearchLanguage: "zh"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.endpoint", "https://news.example.com/feed?q=%s&country=%s&hl=%s")
	v.SetDefault("search.timeout_ms", 10000)
	v.SetDefault("search.retry_attempts", 2)

	v.SetDefault("article_selection.buffer_per_country", 2)
	v.SetDefault("article_selection.max_for_analysis", 10)
	v.SetDefault("article_selection.allow_fallback", true)

	v.SetDefault("extraction.timeout", "15s")
	v.SetDefault("extraction.batch_size", 5)
	v.SetDefault("extraction.retry_low_quality", true)
	v.SetDefault("extraction.quality_thresholds.min_content_length", 200)
	v.SetDefault("extraction.quality_thresholds.max_content_length", 50000)
	v.SetDefault("extraction.quality_thresholds.min_word_count", 50)
	v.SetDefault("extraction.quality_thresholds.max_html_ratio", 0.3)
	v.SetDefault("extraction.quality_thresholds.min_quality_score", 60.0)

	v.SetDefault("analysis.model_provider", "gemini")
	v.SetDefault("analysis.preferred_models", []string{"gemini", "geminilegacy"})
	v.SetDefault("analysis.compression_level", "medium")
	v.SetDefault("analysis.retry_attempts", 2)
	v.SetDefault("analysis.retry_base_delay", "1s")
	v.SetDefault("analysis.retry_factor", 2.0)

	v.SetDefault("validation.min_content_length", 200)
	v.SetDefault("validation.min_word_count", 50)
	v.SetDefault("validation.max_content_length", 50000)
	v.SetDefault("validation.min_quality_score", 0.0)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables(v *viper.Viper) {
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.legacy_api_key", "GEMINI_LEGACY_API_KEY")
}

// Load reads configuration from built-in defaults, an optional YAML file,
// and environment variables, each overriding the one before. A `.env`
// file, if present, is first loaded into the process environment without
// overriding variables that are already set. Unlike the teacher's
// package-level singleton, Load returns a fresh Config every call —
// callers own their own instance.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".perspectivelens")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(cfg.Search.Countries) == 0 {
		cfg.Search.Countries = DefaultCountries()
	}
	if len(cfg.ArticleSelection.PerCountry) == 0 {
		cfg.ArticleSelection.PerCountry = map[string]int{"US": 2, "GB": 2, "BR": 2}
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency, returning
// every issue found rather than stopping at the first one.
func (c *Config) Validate() []string {
	var issues []string

	catalog := make(map[string]bool, len(c.Search.Countries))
	for _, cs := range c.Search.Countries {
		if cs.Code == "" {
			issues = append(issues, "search.countries: entry with empty code")
			continue
		}
		catalog[cs.Code] = true
	}

	for code := range c.ArticleSelection.PerCountry {
		if !catalog[code] {
			issues = append(issues, fmt.Sprintf("article_selection.per_country: country %q not present in search.countries catalog", code))
		}
	}

	if c.ArticleSelection.MaxForAnalysis <= 0 {
		issues = append(issues, "article_selection.max_for_analysis must be positive")
	}
	if c.ArticleSelection.BufferPerCountry < 0 {
		issues = append(issues, "article_selection.buffer_per_country must be non-negative")
	}

	if c.Extraction.BatchSize <= 0 {
		issues = append(issues, "extraction.batch_size must be positive")
	}
	if c.Extraction.Timeout <= 0 {
		issues = append(issues, "extraction.timeout must be positive")
	}

	if len(c.Analysis.PreferredModels) == 0 {
		issues = append(issues, "analysis.preferred_models must list at least one backend")
	}
	if c.Analysis.RetryAttempts < 0 {
		issues = append(issues, "analysis.retry_attempts must be non-negative")
	}

	switch c.Analysis.CompressionLevel {
	case CompressionShort, CompressionMedium, CompressionLong, "":
	default:
		issues = append(issues, fmt.Sprintf("analysis.compression_level: unrecognized value %q", c.Analysis.CompressionLevel))
	}

	if c.Gemini.APIKey == "" {
		issues = append(issues, "gemini.api_key is not set; the primary backend will report unavailable")
	}

	return issues
}
