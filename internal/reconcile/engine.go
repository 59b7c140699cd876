// Package reconcile implements the record reconciliation core: the
// arbitration engine that turns zero, one, or many accepted candidates into a
// single decision, the record fuser that applies the decision under the
// gap-filling rule, and the batch runner that fans both out across a record
// collection.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bibfuse/reconciliation-service/internal/arbiter"
	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/normalize"
)

// state labels the per-record arbitration state machine. Every record passes
// through exactly one of the three entry states and terminates in Decided.
type state string

const (
	stateNoCandidates    state = "NO_CANDIDATES"
	stateSingleCandidate state = "SINGLE_CANDIDATE"
	stateMultiCandidate  state = "MULTI_CANDIDATE"
	stateDecided         state = "DECIDED"
)

// labelAlphabet provides the candidate labels used in arbiter prompts.
const labelAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SourcePriority ranks one (source, strategy) pair. Candidates are presented
// to the arbiter in ascending priority-index order, so the first configured
// pair becomes candidate "A".
type SourcePriority struct {
	Source   string          `mapstructure:"source"`
	Strategy domain.Strategy `mapstructure:"strategy"`
}

// Engine decides, per base record, which accepted candidate (if any)
// supersedes or fills gaps in the record.
//
// The engine itself is deterministic; only the MULTI_CANDIDATE state
// delegates to the injected arbiter oracle, and every oracle failure mode
// resolves to the conservative nil choice.
type Engine struct {
	oracle   arbiter.Arbiter
	priority map[SourcePriority]int
	// sem bounds the number of in-flight arbiter calls across records.
	sem    chan struct{}
	logger zerolog.Logger
}

// NewEngine creates an arbitration engine. priorities ranks (source,
// strategy) pairs; pairs not listed sort after listed ones, by candidate rank.
// arbiterConcurrency bounds concurrent oracle calls; values below 1 mean 1.
func NewEngine(oracle arbiter.Arbiter, priorities []SourcePriority, arbiterConcurrency int, logger zerolog.Logger) *Engine {
	prio := make(map[SourcePriority]int, len(priorities))
	for i, p := range priorities {
		prio[p] = i
	}
	if arbiterConcurrency < 1 {
		arbiterConcurrency = 1
	}
	return &Engine{
		oracle:   oracle,
		priority: prio,
		sem:      make(chan struct{}, arbiterConcurrency),
		logger:   logger.With().Str("component", "arbitration-engine").Logger(),
	}
}

// Decide runs the arbitration state machine for one base record over the
// verdicts of all its candidates. It never fails: arbiter unavailability
// resolves to a nil choice. The returned decision is immutable and carries
// the full alternative list and reasoning for audit.
func (e *Engine) Decide(ctx context.Context, base domain.BaseRecord, verdicts []domain.ValidationVerdict) domain.ArbitrationDecision {
	accepted := acceptedCandidates(verdicts)
	e.sortByPriority(accepted)

	st := entryState(len(accepted))
	e.logger.Debug().
		Str("record_id", base.ID).
		Str("state", string(st)).
		Int("accepted_candidates", len(accepted)).
		Msg("arbitration started")

	var decision domain.ArbitrationDecision
	switch st {
	case stateNoCandidates:
		decision = domain.ArbitrationDecision{
			RecordID:  base.ID,
			Outcome:   domain.OutcomeNoCandidates,
			Reasoning: "no accepted candidates; base record stands unchanged",
		}

	case stateSingleCandidate:
		chosen := accepted[0]
		conflicts, confirmations := CompareFields(base, accepted)
		decision = domain.ArbitrationDecision{
			RecordID:      base.ID,
			Chosen:        &chosen,
			Alternatives:  accepted,
			Conflicts:     conflicts,
			Confirmations: confirmations,
			Outcome:       domain.OutcomeAutoSelected,
			Reasoning:     fmt.Sprintf("single accepted candidate %s auto-selected; %s", chosen.Label(), summarizeConfirmations(confirmations)),
		}

	case stateMultiCandidate:
		decision = e.delegate(ctx, base, accepted)
	}

	e.logger.Debug().
		Str("record_id", base.ID).
		Str("state", string(stateDecided)).
		Bool("chosen", decision.Chosen != nil).
		Msg("arbitration finished")
	return decision
}

// delegate handles the MULTI_CANDIDATE state: build the structured
// comparison, ask the oracle, and fall back to the conservative nil choice on
// any failure.
func (e *Engine) delegate(ctx context.Context, base domain.BaseRecord, accepted []domain.CandidateVariant) domain.ArbitrationDecision {
	conflicts, confirmations := CompareFields(base, accepted)

	labeled := make([]arbiter.Labeled, len(accepted))
	for i, c := range accepted {
		labeled[i] = arbiter.Labeled{Label: candidateLabel(i), Candidate: c}
	}

	decision := domain.ArbitrationDecision{
		RecordID:      base.ID,
		Alternatives:  accepted,
		Conflicts:     conflicts,
		Confirmations: confirmations,
	}

	answer, err := e.arbitrate(ctx, arbiter.Request{
		Base:          base,
		Candidates:    labeled,
		Conflicts:     conflicts,
		Confirmations: confirmations,
		LanguageHint:  base.Language,
	})
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("record_id", base.ID).
			Msg("arbiter unavailable, defaulting to no enrichment")
		decision.Outcome = domain.OutcomeArbiterFailed
		decision.Reasoning = fmt.Sprintf("arbiter unavailable (%v); conservative default: no enrichment", err)
		return decision
	}

	if answer.None() {
		decision.ArbiterDeclined = true
		decision.Outcome = domain.OutcomeArbiterDeclined
		decision.Reasoning = "arbiter declined all candidates: " + answer.Reasoning
		return decision
	}

	for _, lc := range labeled {
		if lc.Label == answer.Choice {
			chosen := lc.Candidate
			decision.Chosen = &chosen
			decision.Outcome = domain.OutcomeArbiterSelected
			decision.Reasoning = fmt.Sprintf("arbiter selected %s (%s): %s", lc.Label, chosen.Label(), answer.Reasoning)
			return decision
		}
	}

	// The oracle answered with a label it was never offered.
	decision.Outcome = domain.OutcomeArbiterFailed
	decision.Reasoning = fmt.Sprintf("arbiter answered with unknown label %q; conservative default: no enrichment", answer.Choice)
	return decision
}

// arbitrate performs the bounded-concurrency oracle call.
func (e *Engine) arbitrate(ctx context.Context, req arbiter.Request) (*arbiter.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.oracle.Arbitrate(ctx, req)
}

// sortByPriority orders candidates by the configured (source, strategy)
// ranking; unlisted pairs sort after listed ones, then by candidate rank,
// then by label for a stable order.
func (e *Engine) sortByPriority(candidates []domain.CandidateVariant) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, iOK := e.priority[SourcePriority{Source: candidates[i].Source, Strategy: candidates[i].Strategy}]
		pj, jOK := e.priority[SourcePriority{Source: candidates[j].Source, Strategy: candidates[j].Strategy}]
		switch {
		case iOK && jOK && pi != pj:
			return pi < pj
		case iOK != jOK:
			return iOK
		}
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return candidates[i].Label() < candidates[j].Label()
	})
}

func entryState(accepted int) state {
	switch accepted {
	case 0:
		return stateNoCandidates
	case 1:
		return stateSingleCandidate
	default:
		return stateMultiCandidate
	}
}

func acceptedCandidates(verdicts []domain.ValidationVerdict) []domain.CandidateVariant {
	var accepted []domain.CandidateVariant
	for _, v := range verdicts {
		if v.Accepted {
			accepted = append(accepted, v.Candidate)
		}
	}
	return accepted
}

func candidateLabel(i int) string {
	if i < len(labelAlphabet) {
		return string(labelAlphabet[i])
	}
	return fmt.Sprintf("Z%d", i)
}

// CompareFields identifies, per field, where the base record and the
// candidates disagree (conflicts) and where two or more participants agree
// after normalization (confirmations). A field absent on one side never
// counts as disagreement.
//
// Conflicts are keyed field -> participant -> value, the base record
// participating under "base" and candidates under their source/strategy
// label, so two variants from the same source stay distinguishable.
func CompareFields(base domain.BaseRecord, candidates []domain.CandidateVariant) (map[string]map[string]string, []string) {
	conflicts := make(map[string]map[string]string)
	var confirmations []string

	for _, field := range domain.FieldNames() {
		type participant struct {
			key   string
			value string
		}
		var present []participant

		if v := base.FieldValue(field); v != "" {
			present = append(present, participant{key: domain.ProvenanceBase, value: v})
		}
		for _, c := range candidates {
			if v := c.FieldValue(field); v != "" {
				present = append(present, participant{key: c.Label(), value: v})
			}
		}
		if len(present) < 2 {
			continue
		}

		agreed := true
		first := normalize.Fold(present[0].value)
		for _, p := range present[1:] {
			if normalize.Fold(p.value) != first {
				agreed = false
				break
			}
		}

		if agreed {
			confirmations = append(confirmations, field)
			continue
		}

		values := make(map[string]string, len(present))
		for _, p := range present {
			values[p.key] = p.value
		}
		conflicts[field] = values
	}

	if len(conflicts) == 0 {
		conflicts = nil
	}
	return conflicts, confirmations
}

// summarizeConfirmations is used in mechanically generated reasoning strings.
func summarizeConfirmations(confirmations []string) string {
	if len(confirmations) == 0 {
		return "no field confirmations"
	}
	return "confirmed fields: " + strings.Join(confirmations, ", ")
}
