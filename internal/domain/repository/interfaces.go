package repository

import (
	"context"

	"CreditRisk/internal/domain/models"
)

// AuditSink receives one event per completed assessment.
type AuditSink interface {
	Record(ctx context.Context, e *models.AuditEvent) error
	Close() error
}

// PredictionCache stores predictions by key. Get reports ok=false on a miss.
type PredictionCache interface {
	Get(ctx context.Context, key string) (models.Prediction, bool, error)
	Set(ctx context.Context, key string, p models.Prediction) error
}

// Metrics records assessment telemetry.
type Metrics interface {
	RecordAssessment(outcome models.Outcome, confidence float64, cached bool)
	RecordFailure(kind string)
	RecordInferenceLatency(seconds float64)
	RecordAuditError(backend string)
	RecordCacheLookup(hit bool)
	SetModelAvailable(available bool)
}
