// Package config provides configuration management for the reconciliation service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bibfuse/reconciliation-service/internal/arbiter"
	"github.com/bibfuse/reconciliation-service/internal/matcher"
	"github.com/bibfuse/reconciliation-service/internal/reconcile"
	"github.com/bibfuse/reconciliation-service/internal/validate"
)

// Config holds all configuration for the reconciliation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Validation contains candidate validation thresholds.
	Validation validate.Thresholds `mapstructure:"validation"`
	// Reconcile contains batch runner and arbitration settings.
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	// Arbiter contains LLM arbiter backend settings.
	Arbiter ArbiterConfig `mapstructure:"arbiter"`
	// Matcher contains deduplication matcher thresholds.
	Matcher matcher.Config `mapstructure:"matcher"`
	// Catalogs contains union catalog API configurations.
	Catalogs CatalogsConfig `mapstructure:"catalogs"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the Prometheus metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the prefix for all metric names.
	Namespace string `mapstructure:"namespace"`
}

// ReconcileConfig holds the batch runner and arbitration engine settings.
type ReconcileConfig struct {
	// RecordWorkers bounds concurrent record processing per run.
	RecordWorkers int `mapstructure:"record_workers"`
	// ArbiterConcurrency bounds concurrent arbiter calls across records.
	ArbiterConcurrency int `mapstructure:"arbiter_concurrency"`
	// Priorities ranks (source, strategy) pairs for candidate labeling.
	// The first pair becomes candidate "A" in arbiter prompts.
	Priorities []reconcile.SourcePriority `mapstructure:"priorities"`
}

// ArbiterConfig holds LLM arbiter settings.
type ArbiterConfig struct {
	// Provider is the arbiter backend ("ollama" or "openai").
	Provider string `mapstructure:"provider"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// Timeout is the per-call timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// CallsPerSecond bounds the request rate against the backend.
	CallsPerSecond float64 `mapstructure:"calls_per_second"`
	// Ollama contains Ollama-specific settings.
	Ollama OllamaArbiterConfig `mapstructure:"ollama"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIArbiterConfig `mapstructure:"openai"`
}

// OllamaArbiterConfig holds Ollama backend settings.
type OllamaArbiterConfig struct {
	// BaseURL is the Ollama server URL.
	BaseURL string `mapstructure:"base_url"`
	// Model is the primary model identifier.
	Model string `mapstructure:"model"`
	// FallbackModel is tried once after the primary model's retries are
	// exhausted on transient errors.
	FallbackModel string `mapstructure:"fallback_model"`
}

// OpenAIArbiterConfig holds OpenAI backend settings.
type OpenAIArbiterConfig struct {
	// APIKey is loaded exclusively from RECONCILE_ARBITER_OPENAI_API_KEY.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (empty means the public endpoint).
	BaseURL string `mapstructure:"base_url"`
}

// ToFactory converts the arbiter settings to the arbiter package's factory
// configuration, which stays free of config package imports.
func (c ArbiterConfig) ToFactory() arbiter.FactoryConfig {
	return arbiter.FactoryConfig{
		Provider:       c.Provider,
		Temperature:    c.Temperature,
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		CallsPerSecond: c.CallsPerSecond,
		Ollama: arbiter.OllamaConfig{
			BaseURL:       c.Ollama.BaseURL,
			Model:         c.Ollama.Model,
			FallbackModel: c.Ollama.FallbackModel,
		},
		OpenAI: arbiter.OpenAIConfig{
			APIKey:  c.OpenAI.APIKey,
			Model:   c.OpenAI.Model,
			BaseURL: c.OpenAI.BaseURL,
		},
	}
}

// CatalogConfig holds one union catalog's API settings.
type CatalogConfig struct {
	// Enabled indicates whether this catalog participates in match runs.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the catalog API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum entries per search.
	MaxResults int `mapstructure:"max_results"`
	// APIKey is loaded exclusively from environment variables.
	APIKey string `mapstructure:"-"`
}

// CatalogsConfig holds the union catalog configurations.
type CatalogsConfig struct {
	// Default names the catalog match runs use when the request does not
	// pick one.
	Default string `mapstructure:"default"`
	// DNB is the Deutsche Nationalbibliothek catalog.
	DNB CatalogConfig `mapstructure:"dnb"`
	// SWB is the Südwestdeutscher Bibliotheksverbund catalog.
	SWB CatalogConfig `mapstructure:"swb"`
	// K10Plus is the K10plus union catalog.
	K10Plus CatalogConfig `mapstructure:"k10plus"`
}

// ByName returns the named catalog configuration.
func (c CatalogsConfig) ByName(name string) (CatalogConfig, bool) {
	switch strings.ToLower(name) {
	case "dnb":
		return c.DNB, true
	case "swb":
		return c.SWB, true
	case "k10plus":
		return c.K10Plus, true
	default:
		return CatalogConfig{}, false
	}
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reconciliation-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Arbiter.OpenAI.APIKey = os.Getenv("RECONCILE_ARBITER_OPENAI_API_KEY")

	cfg.Catalogs.DNB.APIKey = os.Getenv("RECONCILE_CATALOGS_DNB_API_KEY")
	cfg.Catalogs.SWB.APIKey = os.Getenv("RECONCILE_CATALOGS_SWB_API_KEY")
	cfg.Catalogs.K10Plus.APIKey = os.Getenv("RECONCILE_CATALOGS_K10PLUS_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "4m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "reconciliation")

	// Validation defaults
	v.SetDefault("validation.min_title_similarity", 0.5)
	v.SetDefault("validation.high_title_similarity", 0.7)
	v.SetDefault("validation.max_year_diff", 2)
	v.SetDefault("validation.max_pages_diff_pct", 0.10)

	// Reconcile defaults
	v.SetDefault("reconcile.record_workers", 4)
	v.SetDefault("reconcile.arbiter_concurrency", 2)

	// Arbiter defaults
	v.SetDefault("arbiter.provider", "ollama")
	v.SetDefault("arbiter.temperature", 0.0)
	v.SetDefault("arbiter.timeout", "220s")
	v.SetDefault("arbiter.max_retries", 3)
	v.SetDefault("arbiter.calls_per_second", 1.0)
	v.SetDefault("arbiter.ollama.base_url", "http://localhost:11434")
	v.SetDefault("arbiter.ollama.model", "llama3.3:70b")
	v.SetDefault("arbiter.ollama.fallback_model", "llama3.2")
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("arbiter.openai.model", "gpt-4o-mini")
	v.SetDefault("arbiter.openai.base_url", "https://api.openai.com/v1")

	// Matcher defaults
	v.SetDefault("matcher.title_fuzzy_threshold", 0.85)
	v.SetDefault("matcher.combo_threshold", 0.80)
	v.SetDefault("matcher.title_weight", 0.6)
	v.SetDefault("matcher.author_weight", 0.4)
	v.SetDefault("matcher.max_candidates", 25)
	v.SetDefault("matcher.workers", 4)

	// Catalog defaults
	v.SetDefault("catalogs.default", "k10plus")
	v.SetDefault("catalogs.dnb.enabled", false)
	v.SetDefault("catalogs.dnb.base_url", "https://services.dnb.de")
	v.SetDefault("catalogs.dnb.timeout", "30s")
	v.SetDefault("catalogs.dnb.rate_limit", 5.0)
	v.SetDefault("catalogs.dnb.max_results", 25)
	v.SetDefault("catalogs.swb.enabled", false)
	v.SetDefault("catalogs.swb.base_url", "https://swb.bsz-bw.de")
	v.SetDefault("catalogs.swb.timeout", "30s")
	v.SetDefault("catalogs.swb.rate_limit", 5.0)
	v.SetDefault("catalogs.swb.max_results", 25)
	v.SetDefault("catalogs.k10plus.enabled", true)
	v.SetDefault("catalogs.k10plus.base_url", "https://opac.k10plus.de")
	v.SetDefault("catalogs.k10plus.timeout", "30s")
	v.SetDefault("catalogs.k10plus.rate_limit", 10.0)
	v.SetDefault("catalogs.k10plus.max_results", 25)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Metrics.Enabled && (c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validation thresholds must form the two-band acceptance window.
	if c.Validation.MinTitleSimilarity < 0 || c.Validation.MinTitleSimilarity > 1 {
		return fmt.Errorf("validation min_title_similarity must be in [0,1], got %v", c.Validation.MinTitleSimilarity)
	}
	if c.Validation.HighTitleSimilarity < c.Validation.MinTitleSimilarity || c.Validation.HighTitleSimilarity > 1 {
		return fmt.Errorf("validation high_title_similarity must be in [min_title_similarity,1], got %v", c.Validation.HighTitleSimilarity)
	}
	if c.Validation.MaxYearDiff < 0 {
		return fmt.Errorf("validation max_year_diff must be non-negative, got %d", c.Validation.MaxYearDiff)
	}
	if c.Validation.MaxPagesDiffPct < 0 || c.Validation.MaxPagesDiffPct > 1 {
		return fmt.Errorf("validation max_pages_diff_pct must be in [0,1], got %v", c.Validation.MaxPagesDiffPct)
	}

	if c.Reconcile.RecordWorkers <= 0 {
		return fmt.Errorf("reconcile record_workers must be positive, got %d", c.Reconcile.RecordWorkers)
	}
	if c.Reconcile.ArbiterConcurrency <= 0 {
		return fmt.Errorf("reconcile arbiter_concurrency must be positive, got %d", c.Reconcile.ArbiterConcurrency)
	}

	switch strings.ToLower(c.Arbiter.Provider) {
	case "ollama":
	case "openai":
		if c.Arbiter.OpenAI.APIKey == "" {
			return fmt.Errorf("arbiter provider %q requires RECONCILE_ARBITER_OPENAI_API_KEY to be set", c.Arbiter.Provider)
		}
	default:
		return fmt.Errorf("unsupported arbiter provider: %q", c.Arbiter.Provider)
	}

	if c.Matcher.TitleFuzzyThreshold <= 0 || c.Matcher.TitleFuzzyThreshold > 1 {
		return fmt.Errorf("matcher title_fuzzy_threshold must be in (0,1], got %v", c.Matcher.TitleFuzzyThreshold)
	}
	if c.Matcher.ComboThreshold <= 0 || c.Matcher.ComboThreshold > 1 {
		return fmt.Errorf("matcher combo_threshold must be in (0,1], got %v", c.Matcher.ComboThreshold)
	}
	if sum := c.Matcher.TitleWeight + c.Matcher.AuthorWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matcher title_weight and author_weight must sum to 1, got %v", sum)
	}

	if c.Catalogs.Default != "" {
		if _, ok := c.Catalogs.ByName(c.Catalogs.Default); !ok {
			return fmt.Errorf("unknown default catalog: %q", c.Catalogs.Default)
		}
	}

	return nil
}
