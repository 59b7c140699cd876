package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibfuse/reconciliation-service/internal/arbiter"
	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/validate"
)

func newTestRunner(stub *stubArbiter, workers int) *Runner {
	validator := validate.New(validate.DefaultThresholds())
	engine := NewEngine(stub, testPriorities, 2, zerolog.Nop())
	return NewRunner(validator, engine, nil, zerolog.Nop(), workers)
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	stub := &stubArbiter{decision: &arbiter.Decision{Choice: "A", Reasoning: "identifier match"}}
	runner := newTestRunner(stub, 4)

	recNoCandidates := domain.BaseRecord{
		ID:        "rec-none",
		BibFields: domain.BibFields{Title: "Einsame Platte", Year: 1970},
	}
	recSingle := domain.BaseRecord{
		ID:        "rec-single",
		BibFields: domain.BibFields{Title: "Werkstoffkunde für Ingenieure", Year: 1998},
	}
	recMulti := domain.BaseRecord{
		ID:        "rec-multi",
		BibFields: domain.BibFields{Title: "Grundlagen der Metallurgie", Year: 2003},
	}

	input := Input{
		Records: []domain.BaseRecord{recNoCandidates, recSingle, recMulti},
		Candidates: map[string][]domain.CandidateVariant{
			"rec-single": {
				candidate("dnb", domain.StrategyIdentifier, domain.BibFields{
					Title: "Werkstoffkunde für Ingenieure",
					Year:  1998,
					ISBN:  "3161484100",
				}),
				// Unrelated title, rejected by validation.
				candidate("swb", domain.StrategyTitleAuthor, domain.BibFields{
					Title: "Kochbuch der schwäbischen Küche",
					Year:  1998,
				}),
			},
			"rec-multi": {
				candidate("swb", domain.StrategyTitleAuthor, domain.BibFields{
					Title:     "Grundlagen der Metallurgie",
					Publisher: "Hanser",
				}),
				candidate("dnb", domain.StrategyIdentifier, domain.BibFields{
					Title: "Grundlagen der Metallurgie",
					ISBN:  "3446212336",
				}),
			},
		},
	}

	result, err := runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	require.Len(t, result.Results, 3)

	// Results keep input order regardless of worker scheduling.
	assert.Equal(t, "rec-none", result.Results[0].Record.ID)
	assert.Equal(t, "rec-single", result.Results[1].Record.ID)
	assert.Equal(t, "rec-multi", result.Results[2].Record.ID)

	assert.Equal(t, domain.OutcomeNoCandidates, result.Results[0].Decision.Outcome)
	assert.Equal(t, domain.OutcomeAutoSelected, result.Results[1].Decision.Outcome)
	assert.Equal(t, domain.OutcomeArbiterSelected, result.Results[2].Decision.Outcome)

	// Only the multi-candidate record reaches the oracle.
	assert.Equal(t, 1, stub.callCount())

	// The arbiter picked "A", the dnb/identifier candidate by priority.
	require.NotNil(t, result.Results[2].Decision.Chosen)
	assert.Equal(t, "dnb", result.Results[2].Decision.Chosen.Source)
	assert.Equal(t, "3446212336", result.Results[2].Fused.ISBN)
	assert.Equal(t, "dnb", result.Results[2].Fused.FieldSource[domain.FieldISBN])

	summary := result.Summary
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 4, summary.CandidatesTotal)
	assert.Equal(t, 3, summary.CandidatesAccepted)
	assert.Equal(t, 1, summary.CandidatesRejected)
	assert.Equal(t, 1, summary.NoCandidates)
	assert.Equal(t, 1, summary.AutoSelected)
	assert.Equal(t, 1, summary.ArbiterSelected)
	assert.Equal(t, 0, summary.ArbiterFailed)
	assert.Positive(t, summary.FieldsFilled)
}

func TestRunnerArbiterFailureIsContained(t *testing.T) {
	t.Parallel()

	stub := &stubArbiter{err: assert.AnError}
	runner := newTestRunner(stub, 2)

	base := domain.BaseRecord{
		ID:        "rec-1",
		BibFields: domain.BibFields{Title: "Stahl und Eisen", Year: 1987},
	}
	input := Input{
		Records: []domain.BaseRecord{base},
		Candidates: map[string][]domain.CandidateVariant{
			"rec-1": {
				candidate("dnb", domain.StrategyIdentifier, domain.BibFields{Title: "Stahl und Eisen", ISBN: "111"}),
				candidate("swb", domain.StrategyTitleAuthor, domain.BibFields{Title: "Stahl und Eisen", Pages: "200 S."}),
			},
		},
	}

	result, err := runner.Run(context.Background(), input)
	require.NoError(t, err, "arbiter failure must not fail the run")

	require.Len(t, result.Results, 1)
	decision := result.Results[0].Decision
	assert.Nil(t, decision.Chosen)
	assert.Equal(t, domain.OutcomeArbiterFailed, decision.Outcome)

	// The base record passes through untouched.
	fused := result.Results[0].Fused
	assert.Equal(t, "Stahl und Eisen", fused.Title)
	assert.Equal(t, domain.ProvenanceBase, fused.FieldSource[domain.FieldTitle])
	assert.Equal(t, 1, result.Summary.ArbiterFailed)
}

func TestRunnerEmptyBatch(t *testing.T) {
	t.Parallel()

	stub := &stubArbiter{}
	runner := newTestRunner(stub, 2)

	result, err := runner.Run(context.Background(), Input{})
	require.NoError(t, err)

	assert.Empty(t, result.Results)
	assert.Equal(t, 0, result.Summary.Records)
	assert.Equal(t, 0, stub.callCount())
}

func TestRunnerCancelledContext(t *testing.T) {
	t.Parallel()

	stub := &stubArbiter{}
	runner := newTestRunner(stub, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, Input{
		Records: []domain.BaseRecord{{ID: "rec-1", BibFields: domain.BibFields{Title: "T"}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
