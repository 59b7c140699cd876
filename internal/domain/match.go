package domain

// MatchStrategy identifies which deduplication strategy produced a match.
// Strategies are tried in the declared priority order; the first accepting
// strategy's result is retained.
type MatchStrategy string

const (
	// MatchISBNExact is raw string equality on the ISBN field.
	MatchISBNExact MatchStrategy = "isbn_exact"

	// MatchISBNNormalized is ISBN equality after stripping separators.
	MatchISBNNormalized MatchStrategy = "isbn_normalized"

	// MatchTitleFuzzy is normalized title similarity above threshold.
	MatchTitleFuzzy MatchStrategy = "title_fuzzy"

	// MatchAuthorTitleCombo is a weighted title+author similarity.
	MatchAuthorTitleCombo MatchStrategy = "author_title_combo"
)

// CatalogEntry is one record of the external catalog the deduplication
// matcher compares against. Entries are owned by their ingestion process;
// the matcher reads them and never mutates them.
type CatalogEntry struct {
	// ID is the entry's identifier in the external catalog.
	ID string `json:"id"`

	BibFields
}

// MatchResult pairs a fused record with at most one counterpart from the
// external catalog.
type MatchResult struct {
	// RecordID is the fused record that was matched.
	RecordID string `json:"record_id"`

	// CounterpartID is the matched catalog entry, "" when no match.
	CounterpartID string `json:"counterpart_id,omitempty"`

	// Strategy is the strategy that produced the match, "" when no
	// strategy accepted.
	Strategy MatchStrategy `json:"strategy,omitempty"`

	// Confidence is the strategy's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// IsMatch reports whether a counterpart was found.
	IsMatch bool `json:"is_match"`

	// Indeterminate marks a record whose catalog queries failed. It is
	// distinct from a confirmed non-match and must be retried or
	// surfaced, never treated as absence of a duplicate.
	Indeterminate bool `json:"indeterminate,omitempty"`

	// Error carries the query failure for indeterminate results.
	Error string `json:"error,omitempty"`
}
