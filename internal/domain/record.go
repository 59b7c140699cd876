// Package domain defines the core data model for bibliographic record
// reconciliation: base records, candidate variants, validation verdicts,
// arbitration decisions, fused records, and deduplication match results.
package domain

import (
	"strconv"
	"strings"
)

// Field names shared by base records, candidates, and fused records.
// FieldNames returns them in their canonical order.
const (
	FieldTitle     = "title"
	FieldAuthors   = "authors"
	FieldYear      = "year"
	FieldPublisher = "publisher"
	FieldISBN      = "isbn"
	FieldISSN      = "issn"
	FieldPages     = "pages"
	FieldLanguage  = "language"
)

// FieldNames returns the canonical ordering of bibliographic fields.
// The returned slice is a fresh copy and safe to modify.
func FieldNames() []string {
	return []string{
		FieldTitle,
		FieldAuthors,
		FieldYear,
		FieldPublisher,
		FieldISBN,
		FieldISSN,
		FieldPages,
		FieldLanguage,
	}
}

// BibFields is the field shape shared by base records, candidate variants,
// catalog entries, and fused records. A zero value means the field is unknown;
// absent fields are represented by empty strings (or 0 for Year), never by
// placeholder text.
type BibFields struct {
	// Title is the main title as it appears in the source catalog.
	Title string `json:"title,omitempty"`

	// Authors is the list of author names. Names may appear in either
	// "First Last" or "Last, First" order depending on the source.
	Authors []string `json:"authors,omitempty"`

	// Year is the publication year, 0 if unknown.
	Year int `json:"year,omitempty"`

	// Publisher is the publisher and/or place string.
	Publisher string `json:"publisher,omitempty"`

	// ISBN is the raw identifier string, possibly with separators.
	ISBN string `json:"isbn,omitempty"`

	// ISSN is the raw serial identifier string.
	ISSN string `json:"issn,omitempty"`

	// Pages is the free-text pagination statement (e.g. "188 S.", "XV, 250 p.").
	Pages string `json:"pages,omitempty"`

	// Language is the detected language code of the work (e.g. "ger", "eng").
	Language string `json:"language,omitempty"`
}

// FieldValue returns the string rendering of the named field.
// Authors are joined with "; ", Year renders as a decimal or "" when unknown.
// Unknown field names return "".
func (b BibFields) FieldValue(name string) string {
	switch name {
	case FieldTitle:
		return b.Title
	case FieldAuthors:
		return strings.Join(b.Authors, "; ")
	case FieldYear:
		if b.Year == 0 {
			return ""
		}
		return strconv.Itoa(b.Year)
	case FieldPublisher:
		return b.Publisher
	case FieldISBN:
		return b.ISBN
	case FieldISSN:
		return b.ISSN
	case FieldPages:
		return b.Pages
	case FieldLanguage:
		return b.Language
	default:
		return ""
	}
}

// IsEmpty reports whether every field is unset.
func (b BibFields) IsEmpty() bool {
	return b.Title == "" &&
		len(b.Authors) == 0 &&
		b.Year == 0 &&
		b.Publisher == "" &&
		b.ISBN == "" &&
		b.ISSN == "" &&
		b.Pages == "" &&
		b.Language == ""
}

// PopulatedFields returns the number of fields carrying a value.
// Used by the deduplication matcher to break confidence ties in favor of
// the more complete catalog entry.
func (b BibFields) PopulatedFields() int {
	n := 0
	for _, name := range FieldNames() {
		if b.FieldValue(name) != "" {
			n++
		}
	}
	return n
}

// BaseRecord is the authoritative starting record of a reconciliation run.
// It is an immutable input: fusion produces a new FusedRecord and never
// mutates the base in place. All fields except ID are optional.
type BaseRecord struct {
	// ID is the stable identifier of the record in the base collection.
	ID string `json:"id"`

	BibFields
}

// Strategy identifies the search method that produced a candidate variant.
type Strategy string

const (
	// StrategyIdentifier means the candidate was retrieved by ISBN/ISSN lookup.
	// Identifier-derived candidates rank highest and are exempt from the
	// year tolerance gate during validation.
	StrategyIdentifier Strategy = "identifier"

	// StrategyTitleAuthor means the candidate was retrieved by a combined
	// title and author search.
	StrategyTitleAuthor Strategy = "title_author"

	// StrategyTitleYear means the candidate was retrieved by a combined
	// title and year search.
	StrategyTitleYear Strategy = "title_year"
)

// IsIdentifier reports whether the strategy is identifier-based.
func (s Strategy) IsIdentifier() bool {
	return s == StrategyIdentifier
}

// CandidateVariant is one enrichment result for a base record: the same field
// shape as BaseRecord plus the external catalog that returned it and the
// search strategy that produced it. Candidates are ephemeral; they live for
// one reconciliation run and are never persisted independent of their verdict.
type CandidateVariant struct {
	BibFields

	// Source identifies the external catalog (e.g. "dnb", "loc").
	Source string `json:"source"`

	// Strategy is the search method that produced this candidate.
	Strategy Strategy `json:"strategy"`

	// Rank is the priority among strategies of the same source;
	// lower ranks are preferred, identifier-based lookups rank highest.
	Rank int `json:"rank"`
}

// Label is the source+strategy tag used in decision traces and arbiter
// prompts, e.g. "dnb/identifier".
func (c CandidateVariant) Label() string {
	return c.Source + "/" + string(c.Strategy)
}
