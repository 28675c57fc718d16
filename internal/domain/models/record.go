package models

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// RawApplicant is the unresolved input of one submission: a label per
// categorical feature and a number per numeric feature.
type RawApplicant struct {
	Labels  map[FeatureName]string
	Numbers map[FeatureName]int
}

// NewRawApplicant returns an empty RawApplicant ready to be filled.
func NewRawApplicant() RawApplicant {
	return RawApplicant{
		Labels:  make(map[FeatureName]string),
		Numbers: make(map[FeatureName]int),
	}
}

// ApplicantRecord is one schema-ordered row of encoded features.
// It is immutable: accessors return copies.
type ApplicantRecord struct {
	columns []FeatureName
	values  []int
}

// NewApplicantRecord builds a record from parallel column and value slices.
func NewApplicantRecord(columns []FeatureName, values []int) (ApplicantRecord, error) {
	if len(columns) != len(values) {
		return ApplicantRecord{}, fmt.Errorf("record: %d columns but %d values", len(columns), len(values))
	}
	seen := make(map[FeatureName]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return ApplicantRecord{}, fmt.Errorf("record: duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	r := ApplicantRecord{
		columns: make([]FeatureName, len(columns)),
		values:  make([]int, len(values)),
	}
	copy(r.columns, columns)
	copy(r.values, values)
	return r, nil
}

// Len returns the number of columns.
func (r ApplicantRecord) Len() int { return len(r.columns) }

// Columns returns the column names in record order.
func (r ApplicantRecord) Columns() []FeatureName {
	out := make([]FeatureName, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the encoded values in record order.
func (r ApplicantRecord) Values() []int {
	out := make([]int, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value stored for name.
func (r ApplicantRecord) Get(name FeatureName) (int, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return 0, false
}

// Vector returns the values as float64 in record order, the shape consumed by tree ensembles.
func (r ApplicantRecord) Vector() []float64 {
	out := make([]float64, len(r.values))
	for i, v := range r.values {
		out[i] = float64(v)
	}
	return out
}

// Fingerprint is a stable hex digest of the columns and values.
func (r ApplicantRecord) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for i, c := range r.columns {
		h.Write([]byte(c))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(int64(r.values[i])))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
