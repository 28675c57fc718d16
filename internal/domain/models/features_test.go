package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSchema_Order(t *testing.T) {
	want := []FeatureName{
		"Status", "Duration", "CreditHistory", "Purpose", "CreditAmount", "Savings",
		"EmploymentSince", "InstallmentRate", "PersonalStatusSex", "DebtorsGuarantors",
		"ResidenceSince", "Property", "Age", "OtherInstallmentPlans", "Housing",
		"ExistingCredits", "Job", "NumPeopleLiable", "Telephone", "ForeignWorker",
	}
	assert.Equal(t, want, FeatureSchema())
}

func TestFeatureSchema_ReturnsCopy(t *testing.T) {
	s := FeatureSchema()
	s[0] = "Mutated"
	assert.Equal(t, Status, FeatureSchema()[0])
}

func TestNumericSpecs_DefaultsWithinBounds(t *testing.T) {
	specs := NumericSpecs()
	require.Len(t, specs, 7)
	for _, s := range specs {
		assert.True(t, s.Contains(s.Default), "%s default %d", s.Name, s.Default)
		assert.True(t, s.Contains(s.Min))
		assert.True(t, s.Contains(s.Max))
		assert.False(t, s.Contains(s.Min-1))
		assert.False(t, s.Contains(s.Max+1))
		assert.Positive(t, s.Step)
	}
}

func TestApplicantRecord(t *testing.T) {
	cols := []FeatureName{Status, Duration}
	vals := []int{3, 24}
	r, err := NewApplicantRecord(cols, vals)
	require.NoError(t, err)

	vals[0] = 99
	v, ok := r.Get(Status)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = r.Get(Age)
	assert.False(t, ok)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []float64{3, 24}, r.Vector())

	out := r.Values()
	out[1] = 0
	assert.Equal(t, []int{3, 24}, r.Values())
}

func TestNewApplicantRecord_Invalid(t *testing.T) {
	_, err := NewApplicantRecord([]FeatureName{Status}, []int{1, 2})
	assert.Error(t, err)

	_, err = NewApplicantRecord([]FeatureName{Status, Status}, []int{1, 2})
	assert.Error(t, err)
}

func TestApplicantRecord_Fingerprint(t *testing.T) {
	a, _ := NewApplicantRecord([]FeatureName{Status, Duration}, []int{3, 24})
	b, _ := NewApplicantRecord([]FeatureName{Status, Duration}, []int{3, 24})
	c, _ := NewApplicantRecord([]FeatureName{Status, Duration}, []int{3, 25})
	d, _ := NewApplicantRecord([]FeatureName{Duration, Status}, []int{24, 3})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestDecision_ConfidencePercent(t *testing.T) {
	d := Decision{Outcome: OutcomeFavorable, Confidence: 0.8}
	assert.Equal(t, "80.00%", d.ConfidencePercent())
	assert.True(t, d.Favorable())
}

func TestClassIndex(t *testing.T) {
	assert.Equal(t, 0, ClassIndex(ClassGood))
	assert.Equal(t, 1, ClassIndex(ClassBad))
	assert.Equal(t, -1, ClassIndex(0))
}

func TestSchemaMismatchError_Message(t *testing.T) {
	err := &SchemaMismatchError{Missing: []FeatureName{Age}, Unexpected: []FeatureName{"Colour"}}
	assert.Equal(t, "schema mismatch: missing Age; unexpected Colour", err.Error())
}

func TestAssessmentRequest_Raw(t *testing.T) {
	age := 40
	req := &AssessmentRequest{Status: "no checking account", Age: &age}
	raw := req.Raw()

	assert.Equal(t, "no checking account", raw.Labels[Status])
	assert.Equal(t, 40, raw.Numbers[Age])
	_, ok := raw.Numbers[Duration]
	assert.False(t, ok)
}
