// Package validate implements per-candidate validation: one base record and
// one candidate variant go in, a verdict with the measured evidence comes out.
//
// Validation is a pure function of (base, candidate, thresholds) and holds no
// shared state, so it is safe to fan out across worker pools.
package validate

import (
	"fmt"

	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/similarity"
)

// Thresholds configures the acceptance rules of the validator.
type Thresholds struct {
	// MinTitleSimilarity is the floor below which a candidate is rejected
	// regardless of corroborating evidence.
	MinTitleSimilarity float64 `mapstructure:"min_title_similarity"`

	// HighTitleSimilarity accepts on title similarity alone.
	HighTitleSimilarity float64 `mapstructure:"high_title_similarity"`

	// MaxYearDiff is the tolerated absolute year difference for
	// non-identifier strategies.
	MaxYearDiff int `mapstructure:"max_year_diff"`

	// MaxPagesDiffPct is the tolerated relative page-count difference used
	// to rescue borderline title matches.
	MaxPagesDiffPct float64 `mapstructure:"max_pages_diff_pct"`
}

// DefaultThresholds returns the standard validation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTitleSimilarity:  0.5,
		HighTitleSimilarity: 0.7,
		MaxYearDiff:         2,
		MaxPagesDiffPct:     0.10,
	}
}

// Validator applies the acceptance rules to (base, candidate) pairs.
type Validator struct {
	thresholds Thresholds
}

// New creates a Validator with the given thresholds.
func New(thresholds Thresholds) *Validator {
	return &Validator{thresholds: thresholds}
}

// Validate scores one candidate against one base record and returns the
// verdict with the evidence attached.
//
// Acceptance is disjunctive, first rule wins:
//   - Rule A: title similarity at or above the high threshold.
//   - Rule B: title similarity in the borderline band and a known
//     page-count difference within tolerance.
//
// For non-identifier strategies a known year difference beyond tolerance
// rejects even when a title rule passed; identifier lookups are trusted over
// the year. Candidates that are entirely empty, malformed, or lack a title on
// either side are rejected before scoring.
func (v *Validator) Validate(base domain.BaseRecord, candidate domain.CandidateVariant) domain.ValidationVerdict {
	verdict := domain.ValidationVerdict{
		RecordID:  base.ID,
		Candidate: candidate,
	}

	if candidate.IsEmpty() {
		verdict.Reason = "rejected: empty candidate"
		return verdict
	}

	if reason, ok := malformed(candidate); !ok {
		verdict.Reason = "rejected: malformed candidate: " + reason
		return verdict
	}

	if yd, ok := similarity.YearDifference(base.Year, candidate.Year); ok {
		verdict.YearDifference = &yd
	}
	if pd, ok := similarity.PagesDifferencePct(base.Pages, candidate.Pages); ok {
		verdict.PagesDifferencePct = &pd
	}

	if base.Title == "" || candidate.Title == "" {
		verdict.Reason = "rejected: title missing, similarity undefined"
		return verdict
	}

	verdict.TitleSimilarity = similarity.TitleSimilarity(base.Title, candidate.Title)

	accepted, reason := v.applyRules(verdict)
	if !accepted {
		verdict.Reason = reason
		return verdict
	}

	// Year gate: identifier lookups are trusted over the year, every other
	// strategy must also stay within the year tolerance when both years
	// are known.
	if !candidate.Strategy.IsIdentifier() && verdict.YearDifference != nil && *verdict.YearDifference > v.thresholds.MaxYearDiff {
		verdict.Reason = fmt.Sprintf("rejected: year difference %d exceeds tolerance %d for strategy %s",
			*verdict.YearDifference, v.thresholds.MaxYearDiff, candidate.Strategy)
		return verdict
	}

	verdict.Accepted = true
	verdict.Reason = reason
	return verdict
}

// applyRules evaluates the disjunctive acceptance rules over the measured
// evidence. It returns the acceptance reason, or the failure reason naming
// whichever check failed.
func (v *Validator) applyRules(verdict domain.ValidationVerdict) (bool, string) {
	sim := verdict.TitleSimilarity

	// Rule A: high title similarity alone.
	if sim >= v.thresholds.HighTitleSimilarity {
		return true, domain.ReasonSimilarity
	}

	// Rule B: borderline similarity rescued by pages corroboration.
	if sim >= v.thresholds.MinTitleSimilarity {
		if verdict.PagesDifferencePct == nil {
			return false, fmt.Sprintf("rejected: title similarity %.2f below %.2f and no page counts to corroborate",
				sim, v.thresholds.HighTitleSimilarity)
		}
		if *verdict.PagesDifferencePct <= v.thresholds.MaxPagesDiffPct {
			return true, domain.ReasonSimilarityPages
		}
		return false, fmt.Sprintf("rejected: title similarity %.2f below %.2f and pages difference %.1f%% exceeds %.1f%%",
			sim, v.thresholds.HighTitleSimilarity,
			*verdict.PagesDifferencePct*100, v.thresholds.MaxPagesDiffPct*100)
	}

	return false, fmt.Sprintf("rejected: title similarity %.2f below minimum %.2f",
		sim, v.thresholds.MinTitleSimilarity)
}

// malformed reports shape inconsistencies that disqualify a candidate before
// any scoring.
func malformed(c domain.CandidateVariant) (reason string, ok bool) {
	if c.Year < 0 {
		return fmt.Sprintf("negative year %d", c.Year), false
	}
	if c.Source == "" {
		return "missing source", false
	}
	if c.Strategy == "" {
		return "missing strategy", false
	}
	return "", true
}
