package usecase

import (
	"fmt"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/services/inference"
)

// Decide turns a prediction into a displayable decision.
// Class 1 is favorable ("Good"), class 2 unfavorable ("Bad"); confidence is the
// probability of the predicted class.
func Decide(p models.Prediction) (models.Decision, error) {
	if err := inference.CheckPrediction(p); err != nil {
		return models.Decision{}, err
	}
	idx := models.ClassIndex(p.Class)

	d := models.Decision{
		Class:      p.Class,
		Confidence: p.Proba[idx],
		Proba:      append([]float64(nil), p.Proba...),
	}
	switch p.Class {
	case models.ClassGood:
		d.Outcome, d.Label = models.OutcomeFavorable, "Good"
	case models.ClassBad:
		d.Outcome, d.Label = models.OutcomeUnfavorable, "Bad"
	default:
		return models.Decision{}, fmt.Errorf("class %d: %w", p.Class, models.ErrMalformedPrediction)
	}
	return d, nil
}
