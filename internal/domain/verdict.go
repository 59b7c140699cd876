package domain

// Verdict reasons produced by the candidate validator. Reason strings on a
// ValidationVerdict start with one of these and may carry the measured scores.
const (
	// ReasonSimilarity accepts on high title similarity alone.
	ReasonSimilarity = "similarity"

	// ReasonSimilarityPages accepts a borderline title similarity rescued by
	// an independent pages-count corroboration.
	ReasonSimilarityPages = "similarity+pages corroboration"
)

// ValidationVerdict is the outcome of validating one candidate variant against
// one base record. It is a pure function of (base, candidate, thresholds) and
// carries the evidence that produced it.
type ValidationVerdict struct {
	// RecordID is the base record the candidate was validated against.
	RecordID string `json:"record_id"`

	// Candidate is the validated variant, retained for arbitration.
	Candidate CandidateVariant `json:"candidate"`

	// Accepted reports whether the candidate passed validation.
	Accepted bool `json:"accepted"`

	// TitleSimilarity is the normalized edit-distance ratio over the
	// normalizer output of both titles, in [0,1].
	TitleSimilarity float64 `json:"title_similarity"`

	// YearDifference is |base.Year - candidate.Year|, nil when either
	// side is unknown.
	YearDifference *int `json:"year_difference,omitempty"`

	// PagesDifferencePct is |p1-p2| / avg(p1,p2) over the parsed page
	// counts, nil when either side is unparseable.
	PagesDifferencePct *float64 `json:"pages_difference_pct,omitempty"`

	// Reason explains the verdict: an acceptance rule name, or which
	// check failed.
	Reason string `json:"reason"`
}
