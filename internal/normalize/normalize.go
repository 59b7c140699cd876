// Package normalize canonicalizes free-text bibliographic strings so that
// superficial differences between catalogs (diacritics, non-sort markers,
// connective words, punctuation-as-separator) do not register as conflicts.
//
// All functions are pure and total: they never fail, and empty input yields
// empty output. Both Clean and Fold are idempotent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes accented characters and removes the combining
// marks, reducing e.g. "Prüfung" to "Prufung".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// markerReplacer strips the non-sort marker glyphs cataloging conventions wrap
// around articles ("<<Der>> Titel", "¬Der¬ Titel") and the bracket markers
// used for supplied titles ("[Festschrift]").
var markerReplacer = strings.NewReplacer(
	"<<", "",
	">>", "",
	"¬", "",
	"[", "",
	"]", "",
)

// separatorReplacer collapses punctuation used as a separator to a space.
var separatorReplacer = strings.NewReplacer(
	":", " ",
	";", " ",
	"/", " ",
	"—", " ",
	"–", " ",
	"-", " ",
	"·", " ",
)

// connectives are tokens different catalogs use interchangeably for "and".
var connectives = map[string]bool{
	"&":   true,
	"and": true,
	"und": true,
	"et":  true,
}

// Clean removes cataloging markers, unifies the ampersand connective, and
// collapses separator punctuation and repeated whitespace. Case and accents
// are preserved, making the result suitable as a display form.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = markerReplacer.Replace(s)
	s = separatorReplacer.Replace(s)

	fields := strings.Fields(s)
	for i, f := range fields {
		if f == "&" {
			fields[i] = "and"
		}
	}
	return strings.Join(fields, " ")
}

// Fold builds the case- and accent-insensitive comparison key for s: Clean,
// diacritic folding, lowercasing, removal of residual punctuation, and
// canonicalization of connective tokens. Two strings that differ only in
// diacritics, casing, markers, or connectives fold to the same key.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = Clean(s)

	// "ß" does not decompose under NFD; fold it by hand before lowering.
	s = strings.ReplaceAll(s, "ß", "ss")

	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	// Drop residual punctuation, keeping letters, digits, spaces and the
	// ampersand (canonicalized below).
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}

	fields := strings.Fields(sb.String())
	for i, f := range fields {
		if connectives[f] {
			fields[i] = "and"
		}
	}
	return strings.Join(fields, " ")
}

// Equal reports whether a and b fold to the same comparison key.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
