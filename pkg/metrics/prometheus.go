package metrics

import (
	"CreditRisk/internal/domain/models"
	drepo "CreditRisk/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	assessments    *prometheus.CounterVec
	failures       *prometheus.CounterVec
	confidence     prometheus.Histogram
	latency        prometheus.Histogram
	auditErrors    *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	modelAvailable prometheus.Gauge
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		assessments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_assessments_total",
				Help: "Total number of completed assessments",
			},
			[]string{"outcome", "cached"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_failures_total",
				Help: "Total number of rejected submissions by failure kind",
			},
			[]string{"kind"},
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creditrisk_confidence",
				Help:    "Probability of the predicted class",
				Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
			},
		),
		latency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creditrisk_inference_duration_seconds",
				Help:    "Duration of model inference calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		auditErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_audit_errors_total",
				Help: "Total number of audit events that could not be recorded",
			},
			[]string{"backend"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_cache_lookups_total",
				Help: "Prediction cache lookups by result",
			},
			[]string{"result"},
		),
		modelAvailable: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "creditrisk_model_available",
				Help: "1 when a model artifact is loaded, 0 when prediction is disabled",
			},
		),
	}
}

// RecordAssessment records a completed assessment.
func (r *Recorder) RecordAssessment(outcome models.Outcome, confidence float64, cached bool) {
	c := "false"
	if cached {
		c = "true"
	}
	r.assessments.WithLabelValues(string(outcome), c).Inc()
	r.confidence.Observe(confidence)
}

// RecordFailure records a rejected submission.
func (r *Recorder) RecordFailure(kind string) {
	r.failures.WithLabelValues(kind).Inc()
}

// RecordInferenceLatency records inference latency in seconds.
func (r *Recorder) RecordInferenceLatency(seconds float64) {
	r.latency.Observe(seconds)
}

// RecordAuditError records an audit write that failed.
func (r *Recorder) RecordAuditError(backend string) {
	r.auditErrors.WithLabelValues(backend).Inc()
}

// RecordCacheLookup records a prediction cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// SetModelAvailable publishes whether prediction is enabled.
func (r *Recorder) SetModelAvailable(available bool) {
	if available {
		r.modelAvailable.Set(1)
		return
	}
	r.modelAvailable.Set(0)
}

var _ drepo.Metrics = (*Recorder)(nil)
