package usecase

import (
	"context"
	"encoding/json"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/queue"
)

// AuditJobType is the queue message type for audit events.
const AuditJobType = "audit.record"

// AuditJob drains queued audit events into the recorder's backend.
type AuditJob struct {
	recorder *AuditRecorder
}

// NewAuditJob creates a new AuditJob instance.
func NewAuditJob(recorder *AuditRecorder) *AuditJob {
	return &AuditJob{recorder: recorder}
}

func (j *AuditJob) Name() string { return "audit-writer" }

func (j *AuditJob) Type() string { return AuditJobType }

func (j *AuditJob) Handle(ctx context.Context, payload json.RawMessage) error {
	e, err := queue.Decode[models.AuditEvent](payload)
	if err != nil {
		return err
	}
	return j.recorder.Deliver(ctx, e)
}
