package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPrediction marks a classifier answer that cannot be displayed.
var ErrMalformedPrediction = errors.New("malformed prediction")

// MissingArtifactError reports that the model artifact could not be loaded at start-up.
// It disables prediction but never stops the process.
type MissingArtifactError struct {
	Path string
	Err  error
}

func (e *MissingArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model artifact %q unavailable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("model artifact %q unavailable", e.Path)
}

func (e *MissingArtifactError) Unwrap() error { return e.Err }

// UnknownLabelError reports a label that is not a level of the feature.
type UnknownLabelError struct {
	Feature FeatureName
	Label   string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown label %q for feature %s", e.Label, e.Feature)
}

// UnknownCodeError reports an ordinal code that is not a level of the feature.
type UnknownCodeError struct {
	Feature FeatureName
	Code    int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown ordinal code %d for feature %s", e.Code, e.Feature)
}

// OutOfRangeError reports a numeric input outside its declared inclusive bounds.
type OutOfRangeError struct {
	Feature FeatureName
	Value   int
	Min     int
	Max     int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Feature, e.Min, e.Max, e.Value)
}

// SchemaMismatchError reports drift between the assembled columns and the feature schema.
// Ambiguous lists columns declared both as categorical and as numeric.
type SchemaMismatchError struct {
	Missing    []FeatureName
	Unexpected []FeatureName
	Ambiguous  []FeatureName
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+joinNames(e.Missing))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+joinNames(e.Unexpected))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, "declared twice "+joinNames(e.Ambiguous))
	}
	if len(parts) == 0 {
		return "schema mismatch"
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// InferenceError wraps any failure raised by the inference adapter or found in its answer.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func joinNames(names []FeatureName) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}
