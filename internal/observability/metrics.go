package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the reconciliation service.
// Metrics are organized by subsystem: runs, validation, arbitration, fusion,
// matching, and the outbound arbiter and catalog clients. All counters and
// histograms are registered via promauto for automatic registration with the
// default Prometheus registry.
type Metrics struct {
	// RunsStarted counts reconciliation runs initiated.
	RunsStarted prometheus.Counter

	// RunsCompleted counts reconciliation runs that finished successfully.
	RunsCompleted prometheus.Counter

	// RunsFailed counts reconciliation runs that ended in failure.
	RunsFailed prometheus.Counter

	// RunDuration observes the end-to-end duration of runs in seconds.
	RunDuration prometheus.Histogram

	// RecordsReconciled counts base records processed across all runs.
	RecordsReconciled prometheus.Counter

	// CandidatesValidated counts candidate verdicts, labeled by outcome
	// ("accepted", "rejected") and the verdict reason.
	CandidatesValidated *prometheus.CounterVec

	// Arbitrations counts per-record arbitration outcomes, labeled by outcome
	// ("no_candidates", "auto_selected", "arbiter_selected",
	// "arbiter_declined", "arbiter_failed").
	Arbitrations *prometheus.CounterVec

	// FieldsFilled counts base-record gaps filled during fusion, labeled by field.
	FieldsFilled *prometheus.CounterVec

	// FieldsConfirmed counts base fields independently corroborated during
	// fusion, labeled by field.
	FieldsConfirmed *prometheus.CounterVec

	// MatchesEvaluated counts deduplication comparisons, labeled by result
	// ("match", "no_match", "indeterminate").
	MatchesEvaluated *prometheus.CounterVec

	// MatchesByStrategy counts positive matches, labeled by the deciding strategy.
	MatchesByStrategy *prometheus.CounterVec

	// ArbiterRequestsTotal counts arbiter API requests, labeled by provider and model.
	ArbiterRequestsTotal *prometheus.CounterVec

	// ArbiterRequestsFailed counts failed arbiter API requests, labeled by
	// provider, model, and error type.
	ArbiterRequestsFailed *prometheus.CounterVec

	// ArbiterRequestDuration observes arbiter API request duration in seconds.
	ArbiterRequestDuration *prometheus.HistogramVec

	// CatalogRequestsTotal counts HTTP requests to catalog APIs, labeled by
	// catalog and endpoint.
	CatalogRequestsTotal *prometheus.CounterVec

	// CatalogRequestsFailed counts failed catalog requests, labeled by
	// catalog, endpoint, and error type.
	CatalogRequestsFailed *prometheus.CounterVec

	// CatalogRequestDuration observes catalog request duration in seconds.
	CatalogRequestDuration *prometheus.HistogramVec

	// CatalogRateLimited counts rate-limited responses from catalogs.
	CatalogRateLimited *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Runs
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of reconciliation runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of reconciliation runs completed successfully",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of reconciliation runs that failed",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RecordsReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_reconciled_total",
			Help:      "Total number of base records reconciled",
		}),

		// Validation
		CandidatesValidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_validated_total",
			Help:      "Total number of candidate validation verdicts by outcome and reason",
		}, []string{"outcome", "reason"}),

		// Arbitration
		Arbitrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arbitrations_total",
			Help:      "Total number of per-record arbitration outcomes",
		}, []string{"outcome"}),

		// Fusion
		FieldsFilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_filled_total",
			Help:      "Total number of base record gaps filled during fusion",
		}, []string{"field"}),
		FieldsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_confirmed_total",
			Help:      "Total number of base record fields corroborated during fusion",
		}, []string{"field"}),

		// Matching
		MatchesEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_evaluated_total",
			Help:      "Total number of deduplication comparisons by result",
		}, []string{"result"}),
		MatchesByStrategy: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_by_strategy_total",
			Help:      "Total number of positive matches by deciding strategy",
		}, []string{"strategy"}),

		// Arbiter client
		ArbiterRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arbiter_requests_total",
			Help:      "Total number of arbiter API requests",
		}, []string{"provider", "model"}),
		ArbiterRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arbiter_requests_failed_total",
			Help:      "Total number of failed arbiter API requests",
		}, []string{"provider", "model", "error_type"}),
		ArbiterRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "arbiter_request_duration_seconds",
			Help:      "Duration of arbiter API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 220},
		}, []string{"provider", "model"}),

		// Catalog client
		CatalogRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Total number of requests to catalog APIs",
		}, []string{"catalog", "endpoint"}),
		CatalogRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_failed_total",
			Help:      "Total number of failed requests to catalog APIs",
		}, []string{"catalog", "endpoint", "error_type"}),
		CatalogRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_request_duration_seconds",
			Help:      "Duration of requests to catalog APIs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"catalog", "endpoint"}),
		CatalogRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_rate_limited_total",
			Help:      "Total number of rate limit responses from catalogs",
		}, []string{"catalog"}),
	}
}

// RecordRunStarted records that a reconciliation run has started.
func (m *Metrics) RecordRunStarted() {
	m.RunsStarted.Inc()
}

// RecordRunCompleted records that a reconciliation run has completed.
func (m *Metrics) RecordRunCompleted(durationSeconds float64) {
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordRunFailed records that a reconciliation run has failed.
func (m *Metrics) RecordRunFailed(durationSeconds float64) {
	m.RunsFailed.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordCandidateValidated records one candidate validation verdict.
func (m *Metrics) RecordCandidateValidated(accepted bool, reason string) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.CandidatesValidated.WithLabelValues(outcome, reason).Inc()
}

// RecordArbitration records one per-record arbitration outcome.
func (m *Metrics) RecordArbitration(outcome string) {
	m.RecordsReconciled.Inc()
	m.Arbitrations.WithLabelValues(outcome).Inc()
}

// RecordFieldFilled records a gap filled during fusion.
func (m *Metrics) RecordFieldFilled(field string) {
	m.FieldsFilled.WithLabelValues(field).Inc()
}

// RecordFieldConfirmed records a base field corroborated during fusion.
func (m *Metrics) RecordFieldConfirmed(field string) {
	m.FieldsConfirmed.WithLabelValues(field).Inc()
}

// RecordMatchEvaluated records one deduplication comparison. strategy is the
// deciding strategy and is only counted when result is "match".
func (m *Metrics) RecordMatchEvaluated(result, strategy string) {
	m.MatchesEvaluated.WithLabelValues(result).Inc()
	if result == "match" && strategy != "" {
		m.MatchesByStrategy.WithLabelValues(strategy).Inc()
	}
}

// RecordArbiterRequest records an arbiter API request.
func (m *Metrics) RecordArbiterRequest(provider, model string, durationSeconds float64) {
	m.ArbiterRequestsTotal.WithLabelValues(provider, model).Inc()
	m.ArbiterRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordArbiterRequestFailed records a failed arbiter API request.
func (m *Metrics) RecordArbiterRequestFailed(provider, model, errorType string) {
	m.ArbiterRequestsFailed.WithLabelValues(provider, model, errorType).Inc()
}

// RecordCatalogRequest records a request to a catalog API.
func (m *Metrics) RecordCatalogRequest(catalog, endpoint string, durationSeconds float64) {
	m.CatalogRequestsTotal.WithLabelValues(catalog, endpoint).Inc()
	m.CatalogRequestDuration.WithLabelValues(catalog, endpoint).Observe(durationSeconds)
}

// RecordCatalogRequestFailed records a failed request to a catalog API.
func (m *Metrics) RecordCatalogRequestFailed(catalog, endpoint, errorType string) {
	m.CatalogRequestsFailed.WithLabelValues(catalog, endpoint, errorType).Inc()
}

// RecordCatalogRateLimited records a rate limit response from a catalog.
func (m *Metrics) RecordCatalogRateLimited(catalog string) {
	m.CatalogRateLimited.WithLabelValues(catalog).Inc()
}
