package arbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bibfuse/reconciliation-service/internal/observability"
)

// Default values for the Ollama provider.
const (
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultOllamaModel      = "llama3.3:70b"
	defaultOllamaNumPredict = 180
	defaultOllamaRetryDelay = 2 * time.Second
)

// generateRequest represents the Ollama /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions carries the sampling options for a generate call.
type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// generateResponse represents the Ollama /api/generate response body.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaConfig holds the parameters needed to create an Ollama provider.
type OllamaConfig struct {
	// BaseURL is the Ollama server URL (empty means http://localhost:11434).
	BaseURL string
	// Model is the model identifier (e.g. "llama3.3:70b").
	Model string
	// FallbackModel, when set, is tried once after the primary model's
	// retries are exhausted on transient errors.
	FallbackModel string
}

// OllamaProvider implements Arbiter against a local Ollama server.
//
// Calls are rate limited, retried a bounded number of times on transient
// failures with linear backoff, and optionally fall back to a smaller model.
// When everything fails the caller receives an error and must resolve it to
// a conservative "none" decision.
type OllamaProvider struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	metrics     *observability.Metrics
	baseURL     string
	model       string
	fallback    string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// NewOllamaProvider creates a new Ollama arbitration provider.
func NewOllamaProvider(cfg OllamaConfig, temperature float64, timeout time.Duration, maxRetries int, callsPerSecond float64) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 220 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}

	return &OllamaProvider{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		baseURL:     baseURL,
		model:       model,
		fallback:    cfg.FallbackModel,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultOllamaRetryDelay,
	}
}

// WithMetrics attaches request metrics and returns the provider.
func (p *OllamaProvider) WithMetrics(m *observability.Metrics) *OllamaProvider {
	p.metrics = m
	return p
}

// Arbitrate sends the arbitration prompt to Ollama and parses the one-line
// answer. Transient errors are retried up to maxRetries times; when a
// fallback model is configured it is tried once after the primary model's
// retries are exhausted.
func (p *OllamaProvider) Arbitrate(ctx context.Context, req Request) (*Decision, error) {
	systemPrompt, userPrompt := BuildPrompt(req)

	labels := make([]string, len(req.Candidates))
	for i, lc := range req.Candidates {
		labels[i] = lc.Label
	}

	raw, err := p.generateWithRetry(ctx, p.model, systemPrompt, userPrompt)
	if err != nil && p.fallback != "" && isTransientError(err) {
		raw, err = p.generate(ctx, p.fallback, systemPrompt, userPrompt)
	}
	if err != nil {
		return nil, err
	}

	decision := ParseResponse(raw, labels)
	return &decision, nil
}

// Provider returns the name of the arbiter backend.
func (p *OllamaProvider) Provider() string {
	return "ollama"
}

// Model returns the model identifier being used.
func (p *OllamaProvider) Model() string {
	return p.model
}

// generateWithRetry retries generate on transient errors with linear backoff.
func (p *OllamaProvider) generateWithRetry(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("ollama: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		raw, err := p.generate(ctx, model, systemPrompt, userPrompt)
		if err == nil {
			return raw, nil
		}
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("ollama: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// generate performs a single /api/generate call.
func (p *OllamaProvider) generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ollama: rate limiter wait: %w", err)
	}
	started := time.Now()

	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: userPrompt,
		System: systemPrompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  defaultOllamaNumPredict,
			Temperature: p.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.observeFailure(model, "transport")
		return "", &APIError{Provider: "ollama", StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		p.observeFailure(model, "read")
		return "", fmt.Errorf("ollama: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.observeFailure(model, strconv.Itoa(resp.StatusCode))
		return "", &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		p.observeFailure(model, "decode")
		return "", fmt.Errorf("ollama: failed to unmarshal response: %w", err)
	}

	p.observeRequest(model, started)
	return genResp.Response, nil
}

func (p *OllamaProvider) observeRequest(model string, started time.Time) {
	if p.metrics != nil {
		p.metrics.RecordArbiterRequest("ollama", model, time.Since(started).Seconds())
	}
}

func (p *OllamaProvider) observeFailure(model, errorType string) {
	if p.metrics != nil {
		p.metrics.RecordArbiterRequestFailed("ollama", model, errorType)
	}
}
