// Package observability provides logging, metrics, and tracing support for
// the record reconciliation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for runs, validation, arbitration, fusion, and matching
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("run_id", runID).Msg("reconciliation run started")
//
// Add run context to a logger:
//
//	logger = observability.WithRunContext(logger, requestID, runID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("reconciliation")
//
// Record metrics:
//
//	metrics.RecordRunStarted()
//	metrics.RecordCandidateValidated(true, "similarity")
//	metrics.RecordArbitration("auto_selected")
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithRunID(ctx, runID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	runID := observability.RunIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - run_id: Reconciliation or match run identifier
//   - record_id: Base record identifier
//   - source: Candidate source (dnb, swb, k10plus, etc.)
//   - strategy: Retrieval or match strategy
//   - arbiter_provider: LLM arbiter backend (ollama, openai)
//   - trace_id: Distributed trace identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
