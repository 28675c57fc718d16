package inference

import (
	"fmt"
	"math"

	"CreditRisk/internal/domain/models"
)

// ProbaTolerance bounds how far a probability vector may sum away from 1.
const ProbaTolerance = 1e-9

// CheckPrediction reports whether p can be shown to a user.
func CheckPrediction(p models.Prediction) error {
	if models.ClassIndex(p.Class) < 0 {
		return fmt.Errorf("class %d: %w", p.Class, models.ErrMalformedPrediction)
	}
	if len(p.Proba) != len(models.ClassOrder) {
		return fmt.Errorf("%d probabilities for %d classes: %w", len(p.Proba), len(models.ClassOrder), models.ErrMalformedPrediction)
	}
	sum := 0.0
	for i, v := range p.Proba {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("probability %d is %v: %w", i, v, models.ErrMalformedPrediction)
		}
		sum += v
	}
	if math.Abs(sum-1) > ProbaTolerance {
		return fmt.Errorf("probabilities sum to %v: %w", sum, models.ErrMalformedPrediction)
	}
	return nil
}
