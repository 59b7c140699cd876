package arbiter

import (
	"fmt"
	"time"

	"github.com/bibfuse/reconciliation-service/internal/observability"
)

// FactoryConfig holds the parameters needed to create an Arbiter.
// This is defined in the arbiter package to avoid importing the config
// package, keeping the package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the arbiter backend name ("ollama" or "openai").
	Provider string
	// Temperature is the sampling temperature.
	Temperature float64
	// Timeout is the per-call timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int
	// CallsPerSecond bounds the request rate against the backend.
	CallsPerSecond float64
	// Ollama contains Ollama-specific settings.
	Ollama OllamaConfig
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
	// Metrics receives per-request observations. May be nil.
	Metrics *observability.Metrics
}

// New creates an Arbiter based on the configuration. Supports "ollama" and
// "openai" providers; returns an error for unsupported or empty values.
func New(cfg FactoryConfig) (Arbiter, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, cfg.Temperature, cfg.Timeout, cfg.MaxRetries, cfg.CallsPerSecond).WithMetrics(cfg.Metrics), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Temperature, cfg.Timeout, cfg.MaxRetries, cfg.CallsPerSecond).WithMetrics(cfg.Metrics), nil
	default:
		return nil, fmt.Errorf("unsupported arbiter provider: %q", cfg.Provider)
	}
}
