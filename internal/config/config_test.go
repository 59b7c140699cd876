package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibfuse/reconciliation-service/internal/matcher"
	"github.com/bibfuse/reconciliation-service/internal/validate"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "reconciliation", cfg.Metrics.Namespace)

	// Validation defaults
	assert.Equal(t, 0.5, cfg.Validation.MinTitleSimilarity)
	assert.Equal(t, 0.7, cfg.Validation.HighTitleSimilarity)
	assert.Equal(t, 2, cfg.Validation.MaxYearDiff)
	assert.Equal(t, 0.10, cfg.Validation.MaxPagesDiffPct)

	// Reconcile defaults
	assert.Equal(t, 4, cfg.Reconcile.RecordWorkers)
	assert.Equal(t, 2, cfg.Reconcile.ArbiterConcurrency)

	// Arbiter defaults
	assert.Equal(t, "ollama", cfg.Arbiter.Provider)
	assert.Equal(t, 0.0, cfg.Arbiter.Temperature)
	assert.Equal(t, 3, cfg.Arbiter.MaxRetries)
	assert.Equal(t, "http://localhost:11434", cfg.Arbiter.Ollama.BaseURL)
	assert.Equal(t, "llama3.3:70b", cfg.Arbiter.Ollama.Model)
	assert.Equal(t, "llama3.2", cfg.Arbiter.Ollama.FallbackModel)
	assert.Equal(t, "gpt-4o-mini", cfg.Arbiter.OpenAI.Model)

	// Matcher defaults
	assert.Equal(t, 0.85, cfg.Matcher.TitleFuzzyThreshold)
	assert.Equal(t, 0.80, cfg.Matcher.ComboThreshold)
	assert.Equal(t, 0.6, cfg.Matcher.TitleWeight)
	assert.Equal(t, 0.4, cfg.Matcher.AuthorWeight)
	assert.Equal(t, 25, cfg.Matcher.MaxCandidates)

	// Catalog defaults
	assert.Equal(t, "k10plus", cfg.Catalogs.Default)
	assert.True(t, cfg.Catalogs.K10Plus.Enabled)
	assert.False(t, cfg.Catalogs.DNB.Enabled) // Requires registration
	assert.False(t, cfg.Catalogs.SWB.Enabled)
	assert.Equal(t, "https://opac.k10plus.de", cfg.Catalogs.K10Plus.BaseURL)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables with RECONCILE prefix
	t.Setenv("RECONCILE_SERVER_HTTP_PORT", "8888")
	t.Setenv("RECONCILE_LOGGING_LEVEL", "debug")
	t.Setenv("RECONCILE_VALIDATION_MAX_YEAR_DIFF", "3")
	t.Setenv("RECONCILE_ARBITER_PROVIDER", "openai")
	t.Setenv("RECONCILE_ARBITER_OPENAI_API_KEY", "sk-test-override")
	t.Setenv("RECONCILE_ARBITER_OLLAMA_MODEL", "llama3.1:8b")
	t.Setenv("RECONCILE_MATCHER_TITLE_FUZZY_THRESHOLD", "0.9")
	t.Setenv("RECONCILE_CATALOGS_DEFAULT", "dnb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Validation.MaxYearDiff)
	assert.Equal(t, "openai", cfg.Arbiter.Provider)
	assert.Equal(t, "sk-test-override", cfg.Arbiter.OpenAI.APIKey)
	assert.Equal(t, "llama3.1:8b", cfg.Arbiter.Ollama.Model)
	assert.Equal(t, 0.9, cfg.Matcher.TitleFuzzyThreshold)
	assert.Equal(t, "dnb", cfg.Catalogs.Default)
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RECONCILE_ARBITER_OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("RECONCILE_CATALOGS_DNB_API_KEY", "dnb-key-test")
	t.Setenv("RECONCILE_CATALOGS_SWB_API_KEY", "swb-key-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-openai-test", cfg.Arbiter.OpenAI.APIKey)
	assert.Equal(t, "dnb-key-test", cfg.Catalogs.DNB.APIKey)
	assert.Equal(t, "swb-key-test", cfg.Catalogs.SWB.APIKey)

	// Unset keys should be empty.
	assert.Empty(t, cfg.Catalogs.K10Plus.APIKey)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port negative",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = -1
			},
			expectedErr: "invalid HTTP port: -1",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port invalid while metrics enabled",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -5
			},
			expectedErr: "invalid metrics port: -5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			err := cfg.Validate()
			assert.NoError(t, err)
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "invalid"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level: invalid")
	})
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "min title similarity negative",
			modifyFunc: func(c *Config) {
				c.Validation.MinTitleSimilarity = -0.1
			},
			expectedErr: "min_title_similarity must be in [0,1]",
		},
		{
			name: "high threshold below min",
			modifyFunc: func(c *Config) {
				c.Validation.MinTitleSimilarity = 0.8
				c.Validation.HighTitleSimilarity = 0.6
			},
			expectedErr: "high_title_similarity must be in [min_title_similarity,1]",
		},
		{
			name: "year diff negative",
			modifyFunc: func(c *Config) {
				c.Validation.MaxYearDiff = -1
			},
			expectedErr: "max_year_diff must be non-negative",
		},
		{
			name: "pages diff over one",
			modifyFunc: func(c *Config) {
				c.Validation.MaxPagesDiffPct = 1.5
			},
			expectedErr: "max_pages_diff_pct must be in [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_ReconcileConfig(t *testing.T) {
	t.Run("record workers zero", func(t *testing.T) {
		cfg := validConfig()
		cfg.Reconcile.RecordWorkers = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record_workers must be positive")
	})

	t.Run("arbiter concurrency zero", func(t *testing.T) {
		cfg := validConfig()
		cfg.Reconcile.ArbiterConcurrency = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "arbiter_concurrency must be positive")
	})
}

func TestValidate_ArbiterProvider(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectError bool
		errContains string
	}{
		{
			name: "ollama does not require key",
			modifyFunc: func(c *Config) {
				c.Arbiter.Provider = "ollama"
			},
			expectError: false,
		},
		{
			name: "openai without key fails",
			modifyFunc: func(c *Config) {
				c.Arbiter.Provider = "openai"
				c.Arbiter.OpenAI.APIKey = ""
			},
			expectError: true,
			errContains: "RECONCILE_ARBITER_OPENAI_API_KEY",
		},
		{
			name: "openai with key passes",
			modifyFunc: func(c *Config) {
				c.Arbiter.Provider = "openai"
				c.Arbiter.OpenAI.APIKey = "sk-test"
			},
			expectError: false,
		},
		{
			name: "unknown provider fails",
			modifyFunc: func(c *Config) {
				c.Arbiter.Provider = "bard"
			},
			expectError: true,
			errContains: "unsupported arbiter provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_MatcherConfig(t *testing.T) {
	t.Run("weights must sum to one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Matcher.TitleWeight = 0.7
		cfg.Matcher.AuthorWeight = 0.4
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must sum to 1")
	})

	t.Run("fuzzy threshold zero", func(t *testing.T) {
		cfg := validConfig()
		cfg.Matcher.TitleFuzzyThreshold = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title_fuzzy_threshold must be in (0,1]")
	})

	t.Run("combo threshold above one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Matcher.ComboThreshold = 1.2
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "combo_threshold must be in (0,1]")
	})
}

func TestValidate_DefaultCatalog(t *testing.T) {
	t.Run("known catalog passes", func(t *testing.T) {
		cfg := validConfig()
		cfg.Catalogs.Default = "swb"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown catalog fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Catalogs.Default = "worldcat"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown default catalog")
	})

	t.Run("empty default is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.Catalogs.Default = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestCatalogsConfig_ByName(t *testing.T) {
	cfgs := CatalogsConfig{
		DNB: CatalogConfig{BaseURL: "https://services.dnb.de"},
		SWB: CatalogConfig{BaseURL: "https://swb.bsz-bw.de"},
	}

	got, ok := cfgs.ByName("DNB")
	require.True(t, ok)
	assert.Equal(t, "https://services.dnb.de", got.BaseURL)

	_, ok = cfgs.ByName("worldcat")
	assert.False(t, ok)
}

func TestArbiterConfig_ToFactory(t *testing.T) {
	cfg := ArbiterConfig{
		Provider:       "openai",
		Temperature:    0.2,
		MaxRetries:     5,
		CallsPerSecond: 2.0,
		Ollama: OllamaArbiterConfig{
			BaseURL:       "http://ollama:11434",
			Model:         "llama3.3:70b",
			FallbackModel: "llama3.2",
		},
		OpenAI: OpenAIArbiterConfig{
			APIKey: "sk-test",
			Model:  "gpt-4o-mini",
		},
	}

	fc := cfg.ToFactory()
	assert.Equal(t, "openai", fc.Provider)
	assert.Equal(t, 0.2, fc.Temperature)
	assert.Equal(t, 5, fc.MaxRetries)
	assert.Equal(t, 2.0, fc.CallsPerSecond)
	assert.Equal(t, "http://ollama:11434", fc.Ollama.BaseURL)
	assert.Equal(t, "llama3.2", fc.Ollama.FallbackModel)
	assert.Equal(t, "sk-test", fc.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", fc.OpenAI.Model)
}

func TestServerConfig_HTTPAddress(t *testing.T) {
	cfg := ServerConfig{
		Host:     "0.0.0.0",
		HTTPPort: 8080,
	}
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddress())
}

func TestServerConfig_MetricsAddress(t *testing.T) {
	cfg := ServerConfig{
		Host:        "127.0.0.1",
		MetricsPort: 9091,
	}
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// validConfig returns a configuration that passes validation, used as the
// baseline for the table-driven validation tests.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "reconciliation",
		},
		Validation: validate.DefaultThresholds(),
		Reconcile: ReconcileConfig{
			RecordWorkers:      4,
			ArbiterConcurrency: 2,
		},
		Arbiter: ArbiterConfig{
			Provider: "ollama",
			Ollama: OllamaArbiterConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama3.3:70b",
			},
		},
		Matcher: matcher.DefaultConfig(),
		Catalogs: CatalogsConfig{
			Default: "k10plus",
			K10Plus: CatalogConfig{
				Enabled: true,
				BaseURL: "https://opac.k10plus.de",
			},
		},
	}
}

// clearEnvVars removes all RECONCILE_ prefixed environment variables
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "RECONCILE_") {
			key := strings.SplitN(env, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}
