package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bibfuse/reconciliation-service/internal/domain"
	"github.com/bibfuse/reconciliation-service/internal/matcher"
	"github.com/bibfuse/reconciliation-service/internal/reconcile"
)

// maxRequestBodySize bounds request bodies at 8 MB; batch sizes are bounded
// separately by the max=500 tag on the record lists.
const maxRequestBodySize = 8 << 20

// recordPayload is one base record in a run request.
type recordPayload struct {
	ID string `json:"id" validate:"required"`

	domain.BibFields
}

// candidatePayload is one candidate variant in a reconciliation run request.
type candidatePayload struct {
	domain.BibFields

	Source   string `json:"source" validate:"required"`
	Strategy string `json:"strategy" validate:"required,oneof=identifier title_author title_year"`
	Rank     int    `json:"rank" validate:"gte=0"`
}

// reconcileRunRequest is the JSON request body for starting a reconciliation run.
type reconcileRunRequest struct {
	Records    []recordPayload               `json:"records" validate:"required,min=1,max=500,dive"`
	Candidates map[string][]candidatePayload `json:"candidates" validate:"omitempty,dive,dive"`
}

// matchRunRequest is the JSON request body for starting a deduplication
// match run.
type matchRunRequest struct {
	// Catalog names the catalog to match against; empty means the
	// configured default.
	Catalog string          `json:"catalog,omitempty"`
	Records []recordPayload `json:"records" validate:"required,min=1,max=500,dive"`
}

// matchRunSummary aggregates counts over one match run.
type matchRunSummary struct {
	Records       int `json:"records"`
	Matched       int `json:"matched"`
	Unmatched     int `json:"unmatched"`
	Indeterminate int `json:"indeterminate"`
}

// matchRunResponse is the JSON response for a completed match run.
type matchRunResponse struct {
	RunID   uuid.UUID            `json:"run_id"`
	Catalog string               `json:"catalog"`
	Results []domain.MatchResult `json:"results"`
	Summary matchRunSummary      `json:"summary"`
	Elapsed time.Duration        `json:"elapsed"`
}

// startReconciliationRun handles POST /api/v1/reconciliation-runs.
// The request carries the base records together with the candidate variants
// retrieved for them; the response carries every verdict, decision, and
// fused record.
func (s *Server) startReconciliationRun(w http.ResponseWriter, r *http.Request) {
	var req reconcileRunRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	input := reconcile.Input{
		Records:    make([]domain.BaseRecord, len(req.Records)),
		Candidates: make(map[string][]domain.CandidateVariant, len(req.Candidates)),
	}
	for i, rp := range req.Records {
		input.Records[i] = rp.toDomain()
	}
	for recordID, candidates := range req.Candidates {
		converted := make([]domain.CandidateVariant, len(candidates))
		for i, cp := range candidates {
			converted[i] = cp.toDomain()
		}
		input.Candidates[recordID] = converted
	}

	result, err := s.runner.Run(r.Context(), input)
	if err != nil {
		s.writeRunError(w, r, err, "reconciliation run")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// startMatchRun handles POST /api/v1/match-runs.
// Each record is matched against the selected catalog; the response carries
// at most one counterpart per record.
func (s *Server) startMatchRun(w http.ResponseWriter, r *http.Request) {
	var req matchRunRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	name := req.Catalog
	if name == "" {
		name = s.defaultCatalog
	}
	cat, ok := s.catalogs.Get(name)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown catalog: %s", name))
		return
	}
	if !cat.IsEnabled() {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("catalog is disabled: %s", name))
		return
	}

	records := make([]domain.BaseRecord, len(req.Records))
	for i, rp := range req.Records {
		records[i] = rp.toDomain()
	}

	started := time.Now()
	m := matcher.New(cat, s.matcherCfg, s.metrics, s.logger)
	results, err := m.MatchAll(r.Context(), records)
	if err != nil {
		s.writeRunError(w, r, err, "match run")
		return
	}

	writeJSON(w, http.StatusOK, matchRunResponse{
		RunID:   uuid.New(),
		Catalog: cat.Name(),
		Results: results,
		Summary: summarizeMatches(results),
		Elapsed: time.Since(started),
	})
}

// decodeRequest reads, unmarshals, and validates a JSON request body.
// It writes the error response itself and reports whether the request is
// usable.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// writeRunError maps a run failure to an HTTP response. The only errors the
// runner and matcher surface are context errors; everything else is contained
// per record.
func (s *Server) writeRunError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, context.Canceled):
		// Client likely went away, but the status must still be explicit
		// so proxies and logs never record a bodyless 200.
		s.logger.Debug().Str("path", r.URL.Path).Msg("request cancelled by client")
		writeError(w, http.StatusRequestTimeout, what+" cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, what+" timed out")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg(what + " failed")
		writeError(w, http.StatusInternalServerError, what+" failed")
	}
}

// validationMessage renders the first field violation as a client-friendly
// message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "min", "max", "gte", "lte":
			return fmt.Sprintf("%s is out of range", fe.Field())
		case "oneof":
			return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	return "invalid request"
}

func (p recordPayload) toDomain() domain.BaseRecord {
	return domain.BaseRecord{
		ID:        p.ID,
		BibFields: p.BibFields,
	}
}

func (p candidatePayload) toDomain() domain.CandidateVariant {
	return domain.CandidateVariant{
		BibFields: p.BibFields,
		Source:    p.Source,
		Strategy:  domain.Strategy(p.Strategy),
		Rank:      p.Rank,
	}
}

func summarizeMatches(results []domain.MatchResult) matchRunSummary {
	s := matchRunSummary{Records: len(results)}
	for _, r := range results {
		switch {
		case r.Indeterminate:
			s.Indeterminate++
		case r.IsMatch:
			s.Matched++
		default:
			s.Unmatched++
		}
	}
	return s
}
