package repository

import (
	"context"
	"errors"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/cache"
)

const predictionKeyPrefix = "prediction"

// PredictionCache stores predictions in any pkg/cache backend.
type PredictionCache struct {
	svc cache.Service
	ttl time.Duration
}

// NewPredictionCache creates a prediction cache over svc.
func NewPredictionCache(svc cache.Service, ttl time.Duration) *PredictionCache {
	return &PredictionCache{svc: svc, ttl: ttl}
}

func (c *PredictionCache) Get(ctx context.Context, key string) (models.Prediction, bool, error) {
	var p models.Prediction
	err := c.svc.Get(ctx, cache.GenerateKey(predictionKeyPrefix, key), &p)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Prediction{}, false, nil
	}
	if err != nil {
		return models.Prediction{}, false, err
	}
	return p, true, nil
}

func (c *PredictionCache) Set(ctx context.Context, key string, p models.Prediction) error {
	return c.svc.Set(ctx, cache.GenerateKey(predictionKeyPrefix, key), p, c.ttl)
}

// Close releases the underlying cache.
func (c *PredictionCache) Close() error {
	return c.svc.Close()
}

var _ repository.PredictionCache = (*PredictionCache)(nil)
