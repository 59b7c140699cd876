package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/observability"
	"github.com/bibfuse/reconciliation-service/internal/validate"
)

// Input is one reconciliation run: a batch of base records and, per record
// ID, the candidate variants retrieved for it.
type Input struct {
	Records    []domain.BaseRecord
	Candidates map[string][]domain.CandidateVariant
}

// RecordResult is the complete per-record outcome: every verdict, the
// arbitration decision, and the fused record.
type RecordResult struct {
	Record   domain.BaseRecord          `json:"record"`
	Verdicts []domain.ValidationVerdict `json:"verdicts"`
	Decision domain.ArbitrationDecision `json:"decision"`
	Fused    domain.FusedRecord         `json:"fused"`
}

// Summary aggregates counts over one run.
type Summary struct {
	Records            int `json:"records"`
	CandidatesTotal    int `json:"candidates_total"`
	CandidatesAccepted int `json:"candidates_accepted"`
	CandidatesRejected int `json:"candidates_rejected"`
	NoCandidates       int `json:"no_candidates"`
	AutoSelected       int `json:"auto_selected"`
	ArbiterSelected    int `json:"arbiter_selected"`
	ArbiterDeclined    int `json:"arbiter_declined"`
	ArbiterFailed      int `json:"arbiter_failed"`
	FieldsFilled       int `json:"fields_filled"`
	FieldsConfirmed    int `json:"fields_confirmed"`
}

// Result is the full output of one run, record results in input order.
type Result struct {
	RunID   uuid.UUID      `json:"run_id"`
	Results []RecordResult `json:"results"`
	Summary Summary        `json:"summary"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Runner drives full reconciliation runs: validate every candidate, arbitrate
// per record, fuse, and aggregate. Records are processed concurrently up to
// the configured worker count; arbiter concurrency is bounded separately by
// the engine.
type Runner struct {
	validator *validate.Validator
	engine    *Engine
	metrics   *observability.Metrics
	logger    zerolog.Logger
	workers   int
}

// NewRunner creates a batch runner. workers bounds concurrent record
// processing; values below 1 mean 1. metrics may be nil.
func NewRunner(validator *validate.Validator, engine *Engine, metrics *observability.Metrics, logger zerolog.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		validator: validator,
		engine:    engine,
		metrics:   metrics,
		logger:    logger.With().Str("component", "reconcile-runner").Logger(),
		workers:   workers,
	}
}

// Run executes one reconciliation run over the input batch. Per-record work
// is contained: an arbiter failure for one record never aborts the run, so
// the only returned error is context cancellation.
func (r *Runner) Run(ctx context.Context, input Input) (*Result, error) {
	runID := uuid.New()
	started := time.Now()
	logger := observability.WithRunContext(r.logger, observability.RequestIDFromContext(ctx), runID.String())
	ctx = observability.WithRunID(ctx, runID.String())

	logger.Info().
		Int("records", len(input.Records)).
		Msg("reconciliation run started")
	if r.metrics != nil {
		r.metrics.RecordRunStarted()
	}

	results := make([]RecordResult, len(input.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, record := range input.Records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.reconcileRecord(gctx, record, input.Candidates[record.ID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("reconciliation run aborted")
		if r.metrics != nil {
			r.metrics.RecordRunFailed(time.Since(started).Seconds())
		}
		return nil, err
	}

	summary := summarize(results)
	elapsed := time.Since(started)
	if r.metrics != nil {
		r.metrics.RecordRunCompleted(elapsed.Seconds())
	}
	logger.Info().
		Int("records", summary.Records).
		Int("candidates_accepted", summary.CandidatesAccepted).
		Int("candidates_rejected", summary.CandidatesRejected).
		Int("arbiter_selected", summary.ArbiterSelected).
		Int("arbiter_failed", summary.ArbiterFailed).
		Dur("elapsed", elapsed).
		Msg("reconciliation run completed")

	return &Result{
		RunID:   runID,
		Results: results,
		Summary: summary,
		Elapsed: elapsed,
	}, nil
}

func (r *Runner) reconcileRecord(ctx context.Context, record domain.BaseRecord, candidates []domain.CandidateVariant) RecordResult {
	logger := observability.WithRecordContext(r.logger, record.ID)

	verdicts := make([]domain.ValidationVerdict, 0, len(candidates))
	for _, c := range candidates {
		verdict := r.validator.Validate(record, c)
		verdicts = append(verdicts, verdict)
		if r.metrics != nil {
			r.metrics.RecordCandidateValidated(verdict.Accepted, verdict.Reason)
		}
		logger.Debug().
			Str("candidate", c.Label()).
			Bool("accepted", verdict.Accepted).
			Str("reason", verdict.Reason).
			Float64("title_similarity", verdict.TitleSimilarity).
			Msg("candidate validated")
	}

	decision := r.engine.Decide(ctx, record, verdicts)
	if r.metrics != nil {
		r.metrics.RecordArbitration(decision.Outcome)
	}

	fused := Fuse(record, decision)
	if r.metrics != nil {
		for field, src := range fused.FieldSource {
			switch src {
			case domain.ProvenanceBase:
			case domain.ProvenanceConfirmed:
				r.metrics.RecordFieldConfirmed(field)
			default:
				r.metrics.RecordFieldFilled(field)
			}
		}
	}

	return RecordResult{
		Record:   record,
		Verdicts: verdicts,
		Decision: decision,
		Fused:    fused,
	}
}

func summarize(results []RecordResult) Summary {
	var s Summary
	s.Records = len(results)
	for _, rr := range results {
		s.CandidatesTotal += len(rr.Verdicts)
		for _, v := range rr.Verdicts {
			if v.Accepted {
				s.CandidatesAccepted++
			} else {
				s.CandidatesRejected++
			}
		}
		switch rr.Decision.Outcome {
		case domain.OutcomeNoCandidates:
			s.NoCandidates++
		case domain.OutcomeAutoSelected:
			s.AutoSelected++
		case domain.OutcomeArbiterSelected:
			s.ArbiterSelected++
		case domain.OutcomeArbiterDeclined:
			s.ArbiterDeclined++
		case domain.OutcomeArbiterFailed:
			s.ArbiterFailed++
		}
		for _, src := range rr.Fused.FieldSource {
			switch src {
			case domain.ProvenanceBase:
			case domain.ProvenanceConfirmed:
				s.FieldsConfirmed++
			default:
				s.FieldsFilled++
			}
		}
	}
	return s
}
