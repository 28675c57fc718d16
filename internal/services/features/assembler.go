package features

import (
	"fmt"
	"sort"

	"CreditRisk/internal/domain/models"
)

// Resolver maps a categorical label to its ordinal code.
// *catalog.Catalog satisfies it.
type Resolver interface {
	Features() []models.FeatureName
	Has(name models.FeatureName) bool
	Resolve(name models.FeatureName, label string) (int, error)
}

// Assembler turns raw form values into a schema-ordered ApplicantRecord.
type Assembler struct {
	cat     Resolver
	schema  []models.FeatureName
	numeric map[models.FeatureName]models.NumericSpec
}

// NewAssembler builds an assembler for the given schema and numeric declarations.
func NewAssembler(cat Resolver, schema []models.FeatureName, numeric []models.NumericSpec) *Assembler {
	a := &Assembler{
		cat:     cat,
		schema:  append([]models.FeatureName(nil), schema...),
		numeric: make(map[models.FeatureName]models.NumericSpec, len(numeric)),
	}
	for _, s := range numeric {
		a.numeric[s.Name] = s
	}
	return a
}

// Schema returns the column order records are emitted in.
func (a *Assembler) Schema() []models.FeatureName {
	return append([]models.FeatureName(nil), a.schema...)
}

// Verify checks that every schema column is produced by exactly one of the catalog
// or a numeric declaration, and that neither declares a column outside the schema.
// Run it at start-up so drift surfaces before the first request.
func (a *Assembler) Verify() error {
	inSchema := make(map[models.FeatureName]struct{}, len(a.schema))
	var missing, unexpected, ambiguous []models.FeatureName
	for _, name := range a.schema {
		inSchema[name] = struct{}{}
		_, isNum := a.numeric[name]
		isCat := a.cat.Has(name)
		switch {
		case isNum && isCat:
			ambiguous = append(ambiguous, name)
		case !isNum && !isCat:
			missing = append(missing, name)
		}
	}
	for name := range a.numeric {
		if _, ok := inSchema[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	for _, name := range a.cat.Features() {
		if _, ok := inSchema[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 || len(ambiguous) > 0 {
		sortNames(unexpected)
		return &models.SchemaMismatchError{Missing: missing, Unexpected: unexpected, Ambiguous: ambiguous}
	}
	return nil
}

// Assemble resolves every categorical label, range-checks every number and
// reindexes the result into schema order.
func (a *Assembler) Assemble(raw models.RawApplicant) (models.ApplicantRecord, error) {
	values := make(map[models.FeatureName]int, len(raw.Labels)+len(raw.Numbers))
	var unexpected []models.FeatureName

	for _, name := range sortedKeys(raw.Labels) {
		if !a.cat.Has(name) {
			unexpected = append(unexpected, name)
			continue
		}
		code, err := a.cat.Resolve(name, raw.Labels[name])
		if err != nil {
			return models.ApplicantRecord{}, err
		}
		values[name] = code
	}

	for _, name := range sortedKeys(raw.Numbers) {
		spec, ok := a.numeric[name]
		if !ok {
			unexpected = append(unexpected, name)
			continue
		}
		v := raw.Numbers[name]
		if !spec.Contains(v) {
			return models.ApplicantRecord{}, &models.OutOfRangeError{Feature: name, Value: v, Min: spec.Min, Max: spec.Max}
		}
		values[name] = v
	}

	cols := make([]models.FeatureName, 0, len(a.schema))
	vals := make([]int, 0, len(a.schema))
	var missing []models.FeatureName
	for _, name := range a.schema {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v)
		delete(values, name)
	}
	for name := range values {
		unexpected = append(unexpected, name)
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sortNames(unexpected)
		return models.ApplicantRecord{}, &models.SchemaMismatchError{Missing: missing, Unexpected: unexpected}
	}

	rec, err := models.NewApplicantRecord(cols, vals)
	if err != nil {
		return models.ApplicantRecord{}, fmt.Errorf("assemble: %w", err)
	}
	return rec, nil
}

func sortedKeys[V any](m map[models.FeatureName]V) []models.FeatureName {
	keys := make([]models.FeatureName, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortNames(keys)
	return keys
}

func sortNames(names []models.FeatureName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
