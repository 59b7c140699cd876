package domain

// Field provenance markers used in FusedRecord.FieldSource. A field is
// otherwise attributed to the source ID of the chosen candidate.
const (
	// ProvenanceBase marks a field whose value came from the base record.
	ProvenanceBase = "base"

	// ProvenanceConfirmed marks a base field whose value the chosen
	// candidate independently agrees with (equal after normalization).
	ProvenanceConfirmed = "confirmed"
)

// Arbitration outcomes carried on ArbitrationDecision.Outcome. They classify
// how the decision was reached, not just whether a candidate was chosen.
const (
	// OutcomeNoCandidates means no candidate passed validation.
	OutcomeNoCandidates = "no_candidates"

	// OutcomeAutoSelected means exactly one candidate passed validation and
	// was selected without delegation.
	OutcomeAutoSelected = "auto_selected"

	// OutcomeArbiterSelected means the delegated arbiter picked a candidate.
	OutcomeArbiterSelected = "arbiter_selected"

	// OutcomeArbiterDeclined means the arbiter considered the candidates and
	// rejected all of them.
	OutcomeArbiterDeclined = "arbiter_declined"

	// OutcomeArbiterFailed means the arbiter was unreachable or answered
	// unusably, so the conservative nil choice applied.
	OutcomeArbiterFailed = "arbiter_failed"
)

// ArbitrationDecision is the single decision produced per base record per
// reconciliation run. It is immutable once created and forms the audit trail
// for the run: which candidate (if any) was chosen, which were considered,
// and where sources agreed or disagreed.
type ArbitrationDecision struct {
	// RecordID is the base record this decision belongs to.
	RecordID string `json:"record_id"`

	// Chosen is the selected candidate, nil when no candidate was accepted
	// or the arbiter declined all of them.
	Chosen *CandidateVariant `json:"chosen,omitempty"`

	// Alternatives lists every accepted candidate that was considered,
	// in priority order, including the chosen one.
	Alternatives []CandidateVariant `json:"alternatives,omitempty"`

	// Conflicts maps a field name to the disagreeing values, keyed by
	// participant: "base" for the base record, the source/strategy label
	// for candidates. A field absent on one side is never a conflict.
	Conflicts map[string]map[string]string `json:"conflicts,omitempty"`

	// Confirmations lists fields on which two or more sources agree
	// (equal after normalization).
	Confirmations []string `json:"confirmations,omitempty"`

	// Reasoning explains the decision: mechanically generated for the
	// zero- and one-candidate cases, passed through from the delegated
	// arbiter for the multi-candidate case.
	Reasoning string `json:"reasoning"`

	// Outcome classifies how the decision was reached, one of the Outcome*
	// constants.
	Outcome string `json:"outcome"`

	// ArbiterDeclined reports that the delegated arbiter considered the
	// candidates and rejected all of them (as opposed to there being
	// nothing to arbitrate).
	ArbiterDeclined bool `json:"arbiter_declined,omitempty"`
}

// FusedRecord is the durable output of reconciling one base record: the base
// fields overlaid with the chosen candidate under the gap-filling rule, plus
// per-field provenance.
type FusedRecord struct {
	// ID is the base record identifier.
	ID string `json:"id"`

	BibFields

	// FieldSource records, per populated field, which of
	// {"base", <candidate source id>, "confirmed"} supplied the value.
	// Fields that remain empty after fusion are not listed.
	FieldSource map[string]string `json:"field_source"`
}
