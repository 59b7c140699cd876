package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/observability"
)

const (
	// defaultMaxResults caps search responses when the query does not say.
	defaultMaxResults = 25

	// endpoints reported in metrics.
	endpointLookup = "lookup"
	endpointSearch = "search"
)

// JSONClientConfig holds configuration for a JSON REST catalog client.
type JSONClientConfig struct {
	// Name identifies the catalog ("dnb", "swb", "k10plus", ...).
	Name string

	// BaseURL is the catalog API base URL (required).
	BaseURL string

	// Timeout is the request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 10.
	RateLimit float64

	// BurstSize is the maximum burst of requests. Defaults to 10.
	BurstSize int

	// MaxResults is the default search result cap. Defaults to 25.
	MaxResults int

	// APIKey is an optional API key sent via X-API-Key.
	APIKey string

	// Enabled indicates whether this catalog participates in match runs.
	Enabled bool
}

func (c *JSONClientConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}
	if c.BurstSize == 0 {
		c.BurstSize = 10
	}
	if c.MaxResults == 0 {
		c.MaxResults = defaultMaxResults
	}
}

// JSONClient queries a catalog exposing the common JSON records API:
// GET /api/records?identifier=... for lookups and
// GET /api/records?title=...&author=...&limit=... for searches.
type JSONClient struct {
	config     JSONClientConfig
	httpClient *HTTPClient
	metrics    *observability.Metrics
}

var _ Catalog = (*JSONClient)(nil)

// NewJSONClient creates a catalog client with its own rate-limited HTTP client.
func NewJSONClient(cfg JSONClientConfig) *JSONClient {
	cfg.applyDefaults()

	httpClient := NewHTTPClient(HTTPClientConfig{
		Name:         cfg.Name,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "X-API-Key",
	})

	return &JSONClient{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewJSONClientWithHTTPClient creates a catalog client with a custom HTTP
// client. This is useful for testing with mock servers.
func NewJSONClientWithHTTPClient(cfg JSONClientConfig, httpClient *HTTPClient) *JSONClient {
	cfg.applyDefaults()

	return &JSONClient{
		config:     cfg,
		httpClient: httpClient,
	}
}

// WithMetrics attaches request metrics to the client and its HTTP transport
// and returns the client.
func (c *JSONClient) WithMetrics(m *observability.Metrics) *JSONClient {
	c.metrics = m
	if c.httpClient != nil {
		c.httpClient.WithMetrics(m)
	}
	return c
}

// catalogRecord is the wire representation of one catalog entry.
type catalogRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Year      int      `json:"year"`
	Publisher string   `json:"publisher"`
	ISBN      string   `json:"isbn"`
	ISSN      string   `json:"issn"`
	Pages     string   `json:"pages"`
	Language  string   `json:"language"`
}

// recordsResponse is the wire representation of the records endpoint.
type recordsResponse struct {
	Records []catalogRecord `json:"records"`
	Total   int             `json:"total"`
}

// Lookup returns the entries carrying the given identifier. An unknown
// identifier yields an empty slice.
func (c *JSONClient) Lookup(ctx context.Context, identifier string) ([]domain.CatalogEntry, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", domain.ErrInvalidInput)
	}

	u, err := c.buildURL(url.Values{"identifier": {identifier}})
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, endpointLookup, u)
}

// Search returns entries matching the query by title text.
func (c *JSONClient) Search(ctx context.Context, query SearchQuery) ([]domain.CatalogEntry, error) {
	if query.Title == "" {
		return nil, fmt.Errorf("%w: empty search title", domain.ErrInvalidInput)
	}

	limit := query.MaxResults
	if limit <= 0 {
		limit = c.config.MaxResults
	}
	params := url.Values{
		"title": {query.Title},
		"limit": {strconv.Itoa(limit)},
	}
	if query.Author != "" {
		params.Set("author", query.Author)
	}

	u, err := c.buildURL(params)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, endpointSearch, u)
}

// Name returns the configured catalog identifier.
func (c *JSONClient) Name() string {
	return c.config.Name
}

// IsEnabled reports whether this catalog participates in match runs.
func (c *JSONClient) IsEnabled() bool {
	return c.config.Enabled
}

func (c *JSONClient) buildURL(params url.Values) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.config.BaseURL, err)
	}
	base = base.JoinPath("api", "records")
	base.RawQuery = params.Encode()
	return base.String(), nil
}

func (c *JSONClient) fetch(ctx context.Context, endpoint, u string) ([]domain.CatalogEntry, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observeFailure(endpoint, "transport")
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrCatalogUnavailable, c.config.Name, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.observeRequest(endpoint, started)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.observeFailure(endpoint, strconv.Itoa(resp.StatusCode))
		return nil, fmt.Errorf("%w: %s %s: unexpected status %d", domain.ErrCatalogUnavailable, c.config.Name, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observeFailure(endpoint, "read")
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var decoded recordsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.observeFailure(endpoint, "decode")
		return nil, fmt.Errorf("decoding %s response: %w", c.config.Name, err)
	}

	entries := make([]domain.CatalogEntry, 0, len(decoded.Records))
	for _, rec := range decoded.Records {
		entries = append(entries, domain.CatalogEntry{
			ID: rec.ID,
			BibFields: domain.BibFields{
				Title:     rec.Title,
				Authors:   rec.Authors,
				Year:      rec.Year,
				Publisher: rec.Publisher,
				ISBN:      rec.ISBN,
				ISSN:      rec.ISSN,
				Pages:     rec.Pages,
				Language:  rec.Language,
			},
		})
	}

	c.observeRequest(endpoint, started)
	return entries, nil
}

func (c *JSONClient) observeRequest(endpoint string, started time.Time) {
	if c.metrics != nil {
		c.metrics.RecordCatalogRequest(c.config.Name, endpoint, time.Since(started).Seconds())
	}
}

func (c *JSONClient) observeFailure(endpoint, errorType string) {
	if c.metrics != nil {
		c.metrics.RecordCatalogRequestFailed(c.config.Name, endpoint, errorType)
	}
}
