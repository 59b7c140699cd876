// Package matcher finds duplicate counterparts of bibliographic records in
// external union catalogs.
//
// Strategies run in a fixed priority order: exact ISBN, normalized ISBN,
// fuzzy title similarity, then a weighted title and author combination. Each
// strategy is tried against every candidate entry before the next strategy is
// considered; the first strategy that accepts any entry decides the match,
// with the highest-confidence entry winning and ties broken in favor of the
// entry with more populated fields.
package matcher

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bibfuse/reconciliation-service/internal/catalog"
	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/observability"
	"github.com/bibfuse/reconciliation-service/internal/similarity"
)

// Confidence assigned by the identifier strategies. Title-based strategies
// carry their computed score instead.
const (
	isbnExactConfidence      = 1.0
	isbnNormalizedConfidence = 0.95
)

// Config holds the matcher thresholds and weights.
type Config struct {
	// TitleFuzzyThreshold is the minimum normalized title similarity for a
	// title_fuzzy match.
	TitleFuzzyThreshold float64 `mapstructure:"title_fuzzy_threshold"`

	// ComboThreshold is the minimum weighted score for an
	// author_title_combo match.
	ComboThreshold float64 `mapstructure:"combo_threshold"`

	// TitleWeight and AuthorWeight form the combo score. They should sum
	// to 1.
	TitleWeight  float64 `mapstructure:"title_weight"`
	AuthorWeight float64 `mapstructure:"author_weight"`

	// MaxCandidates caps how many entries a title search may return.
	MaxCandidates int `mapstructure:"max_candidates"`

	// Workers bounds concurrent record matching in MatchAll.
	Workers int `mapstructure:"workers"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TitleFuzzyThreshold: 0.85,
		ComboThreshold:      0.80,
		TitleWeight:         0.6,
		AuthorWeight:        0.4,
		MaxCandidates:       25,
		Workers:             4,
	}
}

// Matcher matches base records against one external catalog.
type Matcher struct {
	catalog catalog.Catalog
	cfg     Config
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// New creates a matcher over the given catalog. metrics may be nil.
func New(cat catalog.Catalog, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Matcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Matcher{
		catalog: cat,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With().Str("component", "matcher").Str("catalog", cat.Name()).Logger(),
	}
}

// Match finds the best counterpart of one record. Catalog failures yield an
// indeterminate result, never a silent non-match.
func (m *Matcher) Match(ctx context.Context, record domain.BaseRecord) domain.MatchResult {
	entries, err := m.gather(ctx, record)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("record_id", record.ID).
			Msg("catalog query failed, match indeterminate")
		m.observe("indeterminate", "")
		return domain.MatchResult{
			RecordID:      record.ID,
			Indeterminate: true,
			Error:         err.Error(),
		}
	}

	result := m.MatchAgainst(record, entries)
	if result.IsMatch {
		m.observe("match", string(result.Strategy))
	} else {
		m.observe("no_match", "")
	}
	return result
}

// MatchAll matches a batch of records concurrently, results in input order.
// The only returned error is context cancellation; per-record catalog
// failures surface as indeterminate results.
func (m *Matcher) MatchAll(ctx context.Context, records []domain.BaseRecord) ([]domain.MatchResult, error) {
	results := make([]domain.MatchResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, record := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.Match(gctx, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// strategyOrder is the fixed priority order in which strategies are applied.
func strategyOrder() []domain.MatchStrategy {
	return []domain.MatchStrategy{
		domain.MatchISBNExact,
		domain.MatchISBNNormalized,
		domain.MatchTitleFuzzy,
		domain.MatchAuthorTitleCombo,
	}
}

// MatchAgainst evaluates one record against a fixed set of entries. It is the
// pure core of Match, exposed for callers that already hold the entries.
//
// The strategy loop is outermost: a lower-priority strategy is only consulted
// when no entry satisfied any higher-priority one, so an identifier match on
// a sparse entry always beats a title match on a richer entry.
func (m *Matcher) MatchAgainst(record domain.BaseRecord, entries []domain.CatalogEntry) domain.MatchResult {
	result := domain.MatchResult{RecordID: record.ID}

	for _, strategy := range strategyOrder() {
		var bestEntry domain.CatalogEntry
		for _, entry := range entries {
			confidence, ok := m.score(strategy, record, entry)
			if !ok {
				continue
			}
			if !result.IsMatch ||
				confidence > result.Confidence ||
				(confidence == result.Confidence && entry.PopulatedFields() > bestEntry.PopulatedFields()) {
				result.IsMatch = true
				result.CounterpartID = entry.ID
				result.Strategy = strategy
				result.Confidence = confidence
				bestEntry = entry
			}
		}
		if result.IsMatch {
			return result
		}
	}
	return result
}

// score applies one strategy to one (record, entry) pair.
func (m *Matcher) score(strategy domain.MatchStrategy, record domain.BaseRecord, entry domain.CatalogEntry) (float64, bool) {
	switch strategy {
	case domain.MatchISBNExact:
		if record.ISBN != "" && record.ISBN == entry.ISBN {
			return isbnExactConfidence, true
		}

	case domain.MatchISBNNormalized:
		if normalized := NormalizeISBN(record.ISBN); normalized != "" && normalized == NormalizeISBN(entry.ISBN) {
			return isbnNormalizedConfidence, true
		}

	case domain.MatchTitleFuzzy:
		if record.Title == "" || entry.Title == "" {
			return 0, false
		}
		if titleSim := similarity.TitleSimilarity(record.Title, entry.Title); titleSim >= m.cfg.TitleFuzzyThreshold {
			return titleSim, true
		}

	case domain.MatchAuthorTitleCombo:
		if record.Title == "" || entry.Title == "" || len(record.Authors) == 0 || len(entry.Authors) == 0 {
			return 0, false
		}
		titleSim := similarity.TitleSimilarity(record.Title, entry.Title)
		authorSim := similarity.AuthorSimilarity(record.Authors, entry.Authors)
		if combo := m.cfg.TitleWeight*titleSim + m.cfg.AuthorWeight*authorSim; combo >= m.cfg.ComboThreshold {
			return combo, true
		}
	}
	return 0, false
}

// gather collects candidate entries by identifier lookup and title search,
// deduplicated by entry ID.
func (m *Matcher) gather(ctx context.Context, record domain.BaseRecord) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	seen := make(map[string]bool)

	add := func(batch []domain.CatalogEntry) {
		for _, e := range batch {
			if !seen[e.ID] {
				seen[e.ID] = true
				entries = append(entries, e)
			}
		}
	}

	if record.ISBN != "" {
		batch, err := m.catalog.Lookup(ctx, record.ISBN)
		if err != nil {
			return nil, err
		}
		add(batch)
	}
	if record.ISSN != "" {
		batch, err := m.catalog.Lookup(ctx, record.ISSN)
		if err != nil {
			return nil, err
		}
		add(batch)
	}
	if record.Title != "" {
		query := catalog.SearchQuery{
			Title:      record.Title,
			MaxResults: m.cfg.MaxCandidates,
		}
		if len(record.Authors) > 0 {
			query.Author = record.Authors[0]
		}
		batch, err := m.catalog.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		add(batch)
	}

	return entries, nil
}

func (m *Matcher) observe(result, strategy string) {
	if m.metrics != nil {
		m.metrics.RecordMatchEvaluated(result, strategy)
	}
}

// NormalizeISBN strips separators and whitespace from an ISBN or ISSN and
// uppercases the check character, keeping only digits and X.
func NormalizeISBN(isbn string) string {
	var sb strings.Builder
	sb.Grow(len(isbn))
	for _, r := range strings.ToUpper(isbn) {
		if (r >= '0' && r <= '9') || r == 'X' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
