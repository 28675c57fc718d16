package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed german_credit.yaml
var germanCredit []byte

type document struct {
	Features []FeatureDef `yaml:"features"`
}

// Parse builds a catalog from its YAML form.
func Parse(b []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("parse catalog: no features")
	}
	return New(doc.Features...)
}

// LoadFile reads a catalog YAML file.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Default returns the German credit catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(germanCredit)
}
