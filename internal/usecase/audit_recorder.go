package usecase

import (
	"context"
	"fmt"

	"CreditRisk/internal/domain/models"
	drepo "CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/queue"
)

// Audit backends.
const (
	AuditNone       = "none"
	AuditKafka      = "kafka"
	AuditClickHouse = "clickhouse"
)

// AuditRecorder routes assessment events to the configured backend.
type AuditRecorder struct {
	pub     drepo.AuditSink
	store   drepo.AuditSink
	metrics drepo.Metrics
	backend string
	queue   queue.Publisher
}

// NewAuditRecorder creates a new AuditRecorder instance.
func NewAuditRecorder(
	pub drepo.AuditSink,
	store drepo.AuditSink,
	metrics drepo.Metrics,
	backend string,
) *AuditRecorder {
	return &AuditRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// UseQueue makes Record enqueue events; an AuditJob delivers them later.
func (r *AuditRecorder) UseQueue(q queue.Publisher) {
	r.queue = q
}

// Backend reports where events go.
func (r *AuditRecorder) Backend() string { return r.backend }

// Record sends one event to the configured backend, or to the queue when one is set.
func (r *AuditRecorder) Record(ctx context.Context, e *models.AuditEvent) error {
	if e == nil {
		return fmt.Errorf("audit event is nil")
	}
	if r.backend == AuditNone || r.backend == "" {
		return nil
	}
	if r.queue == nil {
		return r.Deliver(ctx, e)
	}

	if err := r.queue.PublishMessage(ctx, AuditJobType, e); err != nil {
		r.metrics.RecordAuditError(r.backend)
		return fmt.Errorf("enqueue audit: %w", err)
	}
	return nil
}

// Deliver writes one event straight to the backend sink.
func (r *AuditRecorder) Deliver(ctx context.Context, e *models.AuditEvent) error {
	var err error
	switch r.backend {
	case AuditNone, "":
		return nil
	case AuditKafka:
		err = record(ctx, r.pub, e)
	case AuditClickHouse:
		err = record(ctx, r.store, e)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordAuditError(r.backend)
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func record(ctx context.Context, sink drepo.AuditSink, e *models.AuditEvent) error {
	if sink == nil {
		return fmt.Errorf("audit sink not configured")
	}
	return sink.Record(ctx, e)
}

// Close closes underlying resources if available.
func (r *AuditRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
