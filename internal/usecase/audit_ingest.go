package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CreditRisk/internal/domain/models"
	drepo "CreditRisk/internal/domain/repository"
	pkgkafka "CreditRisk/pkg/kafka"
)

// AuditIngestHandler consumes audit events from Kafka and writes them to a store.
type AuditIngestHandler struct {
	topic   string
	store   drepo.AuditSink
	metrics drepo.Metrics
}

// NewAuditIngestHandler creates a new AuditIngestHandler instance.
func NewAuditIngestHandler(topic string, store drepo.AuditSink, metrics drepo.Metrics) *AuditIngestHandler {
	return &AuditIngestHandler{topic: topic, store: store, metrics: metrics}
}

func (h *AuditIngestHandler) Topic() string { return h.topic }

// Handle stores one JSON-encoded AuditEvent. Events without an ID are rejected.
func (h *AuditIngestHandler) Handle(ctx context.Context, b []byte) error {
	var e models.AuditEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordAuditError("ingest_unmarshal")
		return fmt.Errorf("decode audit event: %w", err)
	}
	if e.ID == "" {
		h.metrics.RecordAuditError("ingest_unmarshal")
		return fmt.Errorf("audit event has no id")
	}
	if err := h.store.Record(ctx, &e); err != nil {
		h.metrics.RecordAuditError("ingest_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AuditIngestHandler)(nil)
