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

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIMaxTokens  = 256
	defaultOpenAIRetryDelay = 2 * time.Second
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OpenAIConfig holds the parameters needed to create an OpenAI provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// OpenAIProvider implements Arbiter using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	metrics     *observability.Metrics
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// NewOpenAIProvider creates a new OpenAI arbitration provider.
// It handles retry logic for transient API errors; the one-line answer
// grammar is parsed by ParseResponse.
func NewOpenAIProvider(cfg OpenAIConfig, temperature float64, timeout time.Duration, maxRetries int, callsPerSecond float64) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 2
	}

	return &OpenAIProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultOpenAIRetryDelay,
	}
}

// WithMetrics attaches request metrics and returns the provider.
func (p *OpenAIProvider) WithMetrics(m *observability.Metrics) *OpenAIProvider {
	p.metrics = m
	return p
}

// Arbitrate sends the arbitration prompt to the Chat Completions API and
// parses the one-line answer. Transient errors (5xx and 429) are retried up
// to maxRetries times with linear backoff.
func (p *OpenAIProvider) Arbitrate(ctx context.Context, req Request) (*Decision, error) {
	systemPrompt, userPrompt := BuildPrompt(req)

	labels := make([]string, len(req.Candidates))
	for i, lc := range req.Candidates {
		labels[i] = lc.Label
	}

	chatReq := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: p.temperature,
		MaxTokens:   defaultOpenAIMaxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		raw, err := p.doRequest(ctx, chatReq)
		if err == nil {
			decision := ParseResponse(raw, labels)
			return &decision, nil
		}
		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Provider returns the name of the arbiter backend.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Model returns the model identifier being used.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// doRequest performs a single API request to the Chat Completions endpoint.
func (p *OpenAIProvider) doRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("openai: rate limiter wait: %w", err)
	}
	started := time.Now()

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.observeFailure("transport")
		return "", &APIError{Provider: "openai", StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		p.observeFailure("read")
		return "", fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.observeFailure(strconv.Itoa(resp.StatusCode))
		return "", parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		p.observeFailure("decode")
		return "", fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		p.observeFailure("empty")
		return "", fmt.Errorf("openai: empty choices in response")
	}

	p.observeRequest(started)
	return chatResp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) observeRequest(started time.Time) {
	if p.metrics != nil {
		p.metrics.RecordArbiterRequest("openai", p.model, time.Since(started).Seconds())
	}
}

func (p *OpenAIProvider) observeFailure(errorType string) {
	if p.metrics != nil {
		p.metrics.RecordArbiterRequestFailed("openai", p.model, errorType)
	}
}

// parseOpenAIAPIError parses an API error from the response status and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}
	return apiErr
}
