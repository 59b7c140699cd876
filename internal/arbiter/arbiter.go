// Package arbiter delegates the multi-candidate choice of the arbitration
// engine to an external language-model oracle.
//
// The oracle is treated as a pure function: given the base record and the
// accepted candidates, it answers with exactly one candidate label or "none",
// plus a one-line justification. The decision policy travels inside the
// prompt; nothing in this package enforces it mechanically. Callers must
// treat every failure mode (timeout, malformed response, transport error)
// as a "none" answer.
//
// Example usage:
//
//	arb, _ := arbiter.New(arbiter.FactoryConfig{Provider: "ollama"})
//	decision, err := arb.Arbitrate(ctx, arbiter.Request{
//		Base:       base,
//		Candidates: labeled,
//	})
package arbiter

import (
	"context"

	"github.com/bibfuse/reconciliation-service/internal/domain"
)

// Labeled pairs a candidate with the single-letter label it carries in the
// prompt and in the oracle's answer. Labels are assigned in priority order:
// "A" is the highest-priority candidate.
type Labeled struct {
	// Label is the candidate's tag in the prompt ("A", "B", ...).
	Label string

	// Candidate is the accepted variant under consideration.
	Candidate domain.CandidateVariant
}

// Request carries one record's arbitration question to the oracle.
type Request struct {
	// Base is the record being reconciled.
	Base domain.BaseRecord

	// Candidates are the accepted variants in priority order.
	Candidates []Labeled

	// Conflicts maps fields to the disagreeing values keyed by
	// participant label, the base record participating under "base".
	Conflicts map[string]map[string]string

	// Confirmations lists fields on which two or more sources agree.
	Confirmations []string

	// LanguageHint is the detected language of the base record, used by
	// the stated policy to prefer a source matching the record's language.
	LanguageHint string
}

// Decision is the oracle's answer.
type Decision struct {
	// Choice is the selected candidate label, "" when the oracle declined
	// every candidate.
	Choice string

	// Reasoning is the oracle's one-line justification.
	Reasoning string
}

// None reports whether the oracle declined all candidates.
func (d Decision) None() bool {
	return d.Choice == ""
}

// Arbiter is the delegated choice oracle.
//
// Implementations should respect context cancellation, bound their retries,
// and surface transport failures as errors rather than guessed decisions.
type Arbiter interface {
	// Arbitrate asks the oracle to pick one candidate or none.
	Arbitrate(ctx context.Context, req Request) (*Decision, error)

	// Provider returns the oracle backend name (e.g. "ollama", "openai").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
