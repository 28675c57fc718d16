package metrics

import (
	"testing"

	"CreditRisk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordAssessment(models.OutcomeFavorable, 0.8, false)
	r.RecordAssessment(models.OutcomeFavorable, 0.8, true)
	r.RecordAssessment(models.OutcomeUnfavorable, 0.6, false)
	r.RecordFailure("out_of_range")
	r.RecordAuditError("kafka")
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)
	r.SetModelAvailable(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.assessments.WithLabelValues("favorable", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.assessments.WithLabelValues("favorable", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.assessments.WithLabelValues("unfavorable", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("out_of_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.auditErrors.WithLabelValues("kafka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.modelAvailable))

	r.SetModelAvailable(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.modelAvailable))
}

func TestNewWithRegistry_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
