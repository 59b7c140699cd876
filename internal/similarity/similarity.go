// Package similarity provides the computable comparison primitives for record
// reconciliation: normalized edit-distance title similarity, fuzzy author
// list overlap, and numeric-with-tolerance checks for years and page counts.
//
// All functions are pure; they hold no state and are safe for concurrent use.
package similarity

import (
	"github.com/agnivade/levenshtein"

	"github.com/bibfuse/reconciliation-service/internal/normalize"
)

// TitleSimilarity returns a normalized edit-distance ratio over the folded
// forms of both titles: 1.0 for strings that normalize identically, 0.0 for
// completely disjoint strings or when either side is empty.
func TitleSimilarity(a, b string) float64 {
	return Ratio(normalize.Fold(a), normalize.Fold(b))
}

// Ratio returns 1 - levenshtein/maxRuneLen for two already-normalized
// strings. Empty input on either side yields 0.0.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := runeLen(a)
	if l := runeLen(b); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// YearDifference returns |a-b| when both years are known (non-zero).
// ok is false when either side is unknown.
func YearDifference(a, b int) (diff int, ok bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	diff = a - b
	if diff < 0 {
		diff = -diff
	}
	return diff, true
}

// PagesDifferencePct returns |p1-p2| / avg(p1,p2) over the page counts parsed
// out of two free-text pagination statements. ok is false when either side
// does not contain a parseable page count.
func PagesDifferencePct(a, b string) (pct float64, ok bool) {
	pa, okA := ExtractPageCount(a)
	pb, okB := ExtractPageCount(b)
	if !okA || !okB {
		return 0, false
	}

	diff := pa - pb
	if diff < 0 {
		diff = -diff
	}
	avg := float64(pa+pb) / 2.0
	if avg == 0 {
		return 0, false
	}
	return float64(diff) / avg, true
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
