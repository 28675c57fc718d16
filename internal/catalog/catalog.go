// Package catalog holds the static encoding tables of every categorical feature:
// domain code, human-readable label and the ordinal code the model was trained on.
//
// A Catalog is validated once at construction and never mutated afterwards, so a
// single instance can be shared by every request without synchronization.
package catalog

import (
	"errors"
	"fmt"

	"CreditRisk/internal/domain/models"
)

var (
	ErrEmptyFeature     = errors.New("feature has no name or no levels")
	ErrDuplicateFeature = errors.New("duplicate feature")
	ErrDuplicateCode    = errors.New("duplicate domain code")
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrDuplicateOrdinal = errors.New("duplicate ordinal code")
	ErrUnknownFeature   = errors.New("unknown feature")
)

// Level is one value of a categorical feature.
type Level struct {
	Code    string `yaml:"code" json:"code"`
	Label   string `yaml:"label" json:"label"`
	Ordinal int    `yaml:"ordinal" json:"ordinal"`
}

// FeatureDef declares a categorical feature and its levels in presentation order.
type FeatureDef struct {
	Name   models.FeatureName `yaml:"name" json:"name"`
	Title  string             `yaml:"title" json:"title"`
	Levels []Level            `yaml:"levels" json:"levels"`
}

// CatalogError is returned by New when a definition breaks the
// code <-> label <-> ordinal bijection of a feature.
type CatalogError struct {
	Feature models.FeatureName
	Value   string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("catalog: feature %q: %v %q", e.Feature, e.Err, e.Value)
	}
	return fmt.Sprintf("catalog: feature %q: %v", e.Feature, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

type feature struct {
	def       FeatureDef
	byLabel   map[string]int
	byOrdinal map[int]int
	byCode    map[string]int
}

// Catalog is the immutable set of categorical encodings.
type Catalog struct {
	order    []models.FeatureName
	features map[models.FeatureName]*feature
}

// New validates the definitions and builds a catalog.
func New(defs ...FeatureDef) (*Catalog, error) {
	c := &Catalog{
		order:    make([]models.FeatureName, 0, len(defs)),
		features: make(map[models.FeatureName]*feature, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" || len(d.Levels) == 0 {
			return nil, &CatalogError{Feature: d.Name, Err: ErrEmptyFeature}
		}
		if _, dup := c.features[d.Name]; dup {
			return nil, &CatalogError{Feature: d.Name, Err: ErrDuplicateFeature}
		}
		f := &feature{
			def: FeatureDef{
				Name:   d.Name,
				Title:  d.Title,
				Levels: append([]Level(nil), d.Levels...),
			},
			byLabel:   make(map[string]int, len(d.Levels)),
			byOrdinal: make(map[int]int, len(d.Levels)),
			byCode:    make(map[string]int, len(d.Levels)),
		}
		for i, l := range d.Levels {
			if _, dup := f.byCode[l.Code]; dup {
				return nil, &CatalogError{Feature: d.Name, Value: l.Code, Err: ErrDuplicateCode}
			}
			if _, dup := f.byLabel[l.Label]; dup {
				return nil, &CatalogError{Feature: d.Name, Value: l.Label, Err: ErrDuplicateLabel}
			}
			if _, dup := f.byOrdinal[l.Ordinal]; dup {
				return nil, &CatalogError{Feature: d.Name, Value: fmt.Sprint(l.Ordinal), Err: ErrDuplicateOrdinal}
			}
			f.byCode[l.Code] = i
			f.byLabel[l.Label] = i
			f.byOrdinal[l.Ordinal] = i
		}
		c.order = append(c.order, d.Name)
		c.features[d.Name] = f
	}
	return c, nil
}

// Features returns the feature names in declaration order.
func (c *Catalog) Features() []models.FeatureName {
	return append([]models.FeatureName(nil), c.order...)
}

// Has reports whether name is a categorical feature of the catalog.
func (c *Catalog) Has(name models.FeatureName) bool {
	_, ok := c.features[name]
	return ok
}

// Feature returns a copy of the definition of name.
func (c *Catalog) Feature(name models.FeatureName) (FeatureDef, error) {
	f, ok := c.features[name]
	if !ok {
		return FeatureDef{}, fmt.Errorf("catalog: %w %q", ErrUnknownFeature, name)
	}
	def := f.def
	def.Levels = append([]Level(nil), f.def.Levels...)
	return def, nil
}

// LabelsFor returns the labels of a feature in presentation order.
func (c *Catalog) LabelsFor(name models.FeatureName) ([]string, error) {
	f, ok := c.features[name]
	if !ok {
		return nil, fmt.Errorf("catalog: %w %q", ErrUnknownFeature, name)
	}
	out := make([]string, len(f.def.Levels))
	for i, l := range f.def.Levels {
		out[i] = l.Label
	}
	return out, nil
}

// Resolve maps a label to its ordinal code.
func (c *Catalog) Resolve(name models.FeatureName, label string) (int, error) {
	l, err := c.Level(name, label)
	if err != nil {
		return 0, err
	}
	return l.Ordinal, nil
}

// Level returns the full level behind a label.
func (c *Catalog) Level(name models.FeatureName, label string) (Level, error) {
	f, ok := c.features[name]
	if !ok {
		return Level{}, &models.UnknownLabelError{Feature: name, Label: label}
	}
	i, ok := f.byLabel[label]
	if !ok {
		return Level{}, &models.UnknownLabelError{Feature: name, Label: label}
	}
	return f.def.Levels[i], nil
}

// Decode maps an ordinal code back to its label.
func (c *Catalog) Decode(name models.FeatureName, ordinal int) (string, error) {
	f, ok := c.features[name]
	if !ok {
		return "", &models.UnknownCodeError{Feature: name, Code: ordinal}
	}
	i, ok := f.byOrdinal[ordinal]
	if !ok {
		return "", &models.UnknownCodeError{Feature: name, Code: ordinal}
	}
	return f.def.Levels[i].Label, nil
}

// LabelForCode maps a domain code such as "A14" to its label.
func (c *Catalog) LabelForCode(name models.FeatureName, code string) (string, bool) {
	f, ok := c.features[name]
	if !ok {
		return "", false
	}
	i, ok := f.byCode[code]
	if !ok {
		return "", false
	}
	return f.def.Levels[i].Label, true
}
