package inference

import (
	"context"
	"sync"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
)

// Serialized runs one prediction at a time against an engine that is not safe for
// concurrent use.
type Serialized struct {
	mu    sync.Mutex
	inner domsvc.VersionedPredictor
}

func NewSerialized(inner domsvc.VersionedPredictor) *Serialized {
	return &Serialized{inner: inner}
}

func (s *Serialized) Version() string { return s.inner.Version() }

func (s *Serialized) Cacheable() bool { return domsvc.Cacheable(s.inner) }

func (s *Serialized) Predict(ctx context.Context, record models.ApplicantRecord) (models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return models.Prediction{}, err
	}
	return s.inner.Predict(ctx, record)
}

var (
	_ domsvc.VersionedPredictor = (*Serialized)(nil)
	_ domsvc.CachePolicy        = (*Serialized)(nil)
)
