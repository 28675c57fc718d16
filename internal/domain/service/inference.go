package service

import (
	"context"

	"CreditRisk/internal/domain/models"
)

// Predictor is the inference boundary. The record handed in is already in
// models.FeatureSchema order; implementations perform no further validation of it.
// The returned probability vector is aligned with models.ClassOrder.
type Predictor interface {
	Predict(ctx context.Context, record models.ApplicantRecord) (models.Prediction, error)
}

// VersionedPredictor is implemented by predictors that can name the artifact they serve.
type VersionedPredictor interface {
	Predictor
	Version() string
}

// CachePolicy is implemented by predictors whose Version does not pin the model that
// answers, so their predictions must not be reused. Predictors without it are cacheable.
type CachePolicy interface {
	Cacheable() bool
}

// Cacheable reports whether predictions from p may be cached under its version.
func Cacheable(p Predictor) bool {
	if cp, ok := p.(CachePolicy); ok {
		return cp.Cacheable()
	}
	return true
}
