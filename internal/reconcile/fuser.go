package reconcile

import (
	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/normalize"
)

// Fuse materializes an arbitration decision into a fused record under the
// gap-filling rule: populated base fields are never overwritten, empty base
// fields are filled from the chosen candidate, and every populated field of
// the result carries a provenance entry.
//
// Provenance values are "base" for retained base fields, "confirmed" for
// base fields the chosen candidate independently corroborates, and the
// candidate's source ID for filled gaps. A nil choice yields a byte-for-byte
// copy of the base record with pure "base" provenance.
func Fuse(base domain.BaseRecord, decision domain.ArbitrationDecision) domain.FusedRecord {
	fused := domain.FusedRecord{
		ID:          base.ID,
		BibFields:   base.BibFields,
		FieldSource: make(map[string]string),
	}
	// Aliased slice fields must not share backing storage with the input.
	fused.Authors = append([]string(nil), base.Authors...)

	if decision.Chosen == nil {
		for _, field := range domain.FieldNames() {
			if base.FieldValue(field) != "" {
				fused.FieldSource[field] = domain.ProvenanceBase
			}
		}
		return fused
	}
	chosen := *decision.Chosen

	fuseString(&fused, domain.FieldTitle, base.Title, chosen.Title, chosen.Source, func(v string) { fused.Title = v })
	fuseAuthors(&fused, base.Authors, chosen.Authors, chosen.Source)
	fuseYear(&fused, base.Year, chosen.Year, chosen.Source)
	fuseString(&fused, domain.FieldPublisher, base.Publisher, chosen.Publisher, chosen.Source, func(v string) { fused.Publisher = v })
	fuseString(&fused, domain.FieldISBN, base.ISBN, chosen.ISBN, chosen.Source, func(v string) { fused.ISBN = v })
	fuseString(&fused, domain.FieldISSN, base.ISSN, chosen.ISSN, chosen.Source, func(v string) { fused.ISSN = v })
	fuseString(&fused, domain.FieldPages, base.Pages, chosen.Pages, chosen.Source, func(v string) { fused.Pages = v })
	fuseString(&fused, domain.FieldLanguage, base.Language, chosen.Language, chosen.Source, func(v string) { fused.Language = v })

	return fused
}

func fuseString(fused *domain.FusedRecord, field, baseValue, candidateValue, source string, set func(string)) {
	switch {
	case baseValue != "" && candidateValue != "" && normalize.Equal(baseValue, candidateValue):
		fused.FieldSource[field] = domain.ProvenanceConfirmed
	case baseValue != "":
		fused.FieldSource[field] = domain.ProvenanceBase
	case candidateValue != "":
		set(candidateValue)
		fused.FieldSource[field] = source
	}
}

func fuseAuthors(fused *domain.FusedRecord, baseAuthors, candidateAuthors []string, source string) {
	switch {
	case len(baseAuthors) > 0 && len(candidateAuthors) > 0 && authorsEqual(baseAuthors, candidateAuthors):
		fused.FieldSource[domain.FieldAuthors] = domain.ProvenanceConfirmed
	case len(baseAuthors) > 0:
		fused.FieldSource[domain.FieldAuthors] = domain.ProvenanceBase
	case len(candidateAuthors) > 0:
		fused.Authors = append([]string(nil), candidateAuthors...)
		fused.FieldSource[domain.FieldAuthors] = source
	}
}

func fuseYear(fused *domain.FusedRecord, baseYear, candidateYear int, source string) {
	switch {
	case baseYear > 0 && candidateYear > 0 && baseYear == candidateYear:
		fused.FieldSource[domain.FieldYear] = domain.ProvenanceConfirmed
	case baseYear > 0:
		fused.FieldSource[domain.FieldYear] = domain.ProvenanceBase
	case candidateYear > 0:
		fused.Year = candidateYear
		fused.FieldSource[domain.FieldYear] = source
	}
}

func authorsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !normalize.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
