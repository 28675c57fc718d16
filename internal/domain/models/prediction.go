package models

import (
	"fmt"
	"time"
)

// Class codes emitted by the classifier. 1 is a good credit risk, 2 a bad one.
const (
	ClassGood = 1
	ClassBad  = 2
)

// ClassOrder fixes the order of every probability vector: index 0 is P(ClassGood).
var ClassOrder = [...]int{ClassGood, ClassBad}

// ClassIndex returns the position of class in ClassOrder, or -1.
func ClassIndex(class int) int {
	for i, c := range ClassOrder {
		if c == class {
			return i
		}
	}
	return -1
}

// Outcome is the rendered state of a decision.
type Outcome string

const (
	OutcomeFavorable   Outcome = "favorable"
	OutcomeUnfavorable Outcome = "unfavorable"
)

// Prediction is the raw classifier answer for one record.
type Prediction struct {
	Class int       `json:"class"`
	Proba []float64 `json:"proba"`
}

// Decision is a checked prediction ready for display.
type Decision struct {
	Outcome    Outcome   `json:"outcome"`
	Class      int       `json:"class"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Proba      []float64 `json:"proba"`
}

// ConfidencePercent formats the confidence the way the form shows it, e.g. "80.00%".
func (d Decision) ConfidencePercent() string {
	return fmt.Sprintf("%.2f%%", d.Confidence*100)
}

// Favorable reports whether the decision is a good credit risk.
func (d Decision) Favorable() bool { return d.Outcome == OutcomeFavorable }

// EchoRow is one line of the audit table shown next to a decision.
type EchoRow struct {
	Name  FeatureName `json:"name"`
	Value int         `json:"value"`
	Label string      `json:"label,omitempty"`
}

// AuditEvent is the record of a completed assessment sent to the audit backend.
type AuditEvent struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	ModelVersion string        `json:"model_version"`
	Columns      []FeatureName `json:"columns"`
	Values       []int         `json:"values"`
	Class        int           `json:"class"`
	Outcome      Outcome       `json:"outcome"`
	Confidence   float64       `json:"confidence"`
	Cached       bool          `json:"cached"`
}
