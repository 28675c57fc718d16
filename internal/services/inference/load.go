package inference

import (
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"CreditRisk/internal/domain/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed forest.schema.json
var forestSchemaJSON []byte

var forestSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(forestSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("inference: compile forest schema: %v", err))
	}
	forestSchema = s
}

// FieldError is a single problem found in an artifact.
type FieldError struct {
	Field   string
	Message string
}

// ArtifactError lists everything wrong with a malformed artifact.
type ArtifactError struct {
	Errors []FieldError
}

func (e *ArtifactError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid artifact:")
	for _, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", fe.Field, fe.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

type forestDoc struct {
	Format       string               `json:"format"`
	Version      string               `json:"version"`
	Classes      []int                `json:"classes"`
	FeatureNames []models.FeatureName `json:"feature_names"`
	Trees        []struct {
		Nodes []struct {
			Feature   int       `json:"feature"`
			Threshold float64   `json:"threshold"`
			Left      int       `json:"left"`
			Right     int       `json:"right"`
			Value     []float64 `json:"value"`
		} `json:"nodes"`
	} `json:"trees"`
}

// LoadForest reads and validates a tree ensemble artifact. Any failure, whether the
// file is absent or its content is unusable, is reported as *models.MissingArtifactError
// so the caller can disable prediction without stopping.
func LoadForest(path string, schema []models.FeatureName) (*Forest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.MissingArtifactError{Path: path, Err: fs.ErrNotExist}
		}
		return nil, &models.MissingArtifactError{Path: path, Err: err}
	}
	f, err := ParseForest(b, schema)
	if err != nil {
		return nil, &models.MissingArtifactError{Path: path, Err: err}
	}
	return f, nil
}

// ParseForest validates an artifact against the embedded JSON Schema, then against
// the feature schema and class order, and builds an evaluator.
func ParseForest(b []byte, schema []models.FeatureName) (*Forest, error) {
	res, err := forestSchema.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if !res.Valid() {
		ae := &ArtifactError{}
		for _, re := range res.Errors() {
			ae.Errors = append(ae.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return nil, ae
	}

	var doc forestDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	if err := matchSchema(doc.FeatureNames, schema); err != nil {
		return nil, err
	}

	classIdx, err := mapClasses(doc.Classes)
	if err != nil {
		return nil, err
	}

	ae := &ArtifactError{}
	trees := make([]tree, len(doc.Trees))
	for ti, td := range doc.Trees {
		nodes := make([]node, len(td.Nodes))
		for ni, nd := range td.Nodes {
			field := fmt.Sprintf("trees.%d.nodes.%d", ti, ni)
			n := node{feature: nd.Feature, threshold: nd.Threshold, left: nd.Left, right: nd.Right}
			switch {
			case nd.Left == leaf && nd.Right == leaf:
				dist, msg := normalise(nd.Value, len(doc.Classes))
				if msg != "" {
					ae.Errors = append(ae.Errors, FieldError{Field: field + ".value", Message: msg})
				}
				n.dist = dist
			case nd.Left == leaf || nd.Right == leaf:
				ae.Errors = append(ae.Errors, FieldError{Field: field, Message: "split node needs two children"})
			default:
				if nd.Feature < 0 || nd.Feature >= len(doc.FeatureNames) {
					ae.Errors = append(ae.Errors, FieldError{Field: field + ".feature", Message: "feature index out of range"})
				}
				if nd.Left <= ni || nd.Left >= len(td.Nodes) || nd.Right <= ni || nd.Right >= len(td.Nodes) {
					ae.Errors = append(ae.Errors, FieldError{Field: field, Message: "children must follow their parent"})
				}
			}
			nodes[ni] = n
		}
		trees[ti] = tree{nodes: nodes}
	}
	if len(ae.Errors) > 0 {
		return nil, ae
	}

	version := doc.Version
	if version == "" {
		version = "unversioned"
	}
	sum := sha256.Sum256(b)
	return &Forest{
		version:  fmt.Sprintf("%s@%x", version, sum[:6]),
		features: append([]models.FeatureName(nil), doc.FeatureNames...),
		classIdx: classIdx,
		trees:    trees,
	}, nil
}

func matchSchema(got, want []models.FeatureName) error {
	wantSet := make(map[models.FeatureName]struct{}, len(want))
	for _, n := range want {
		wantSet[n] = struct{}{}
	}
	gotSet := make(map[models.FeatureName]struct{}, len(got))
	var unexpected []models.FeatureName
	for _, n := range got {
		gotSet[n] = struct{}{}
		if _, ok := wantSet[n]; !ok {
			unexpected = append(unexpected, n)
		}
	}
	var missing []models.FeatureName
	for _, n := range want {
		if _, ok := gotSet[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		return &models.SchemaMismatchError{Missing: missing, Unexpected: unexpected}
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("artifact column %d is %s, schema expects %s: %w", i, got[i], want[i],
				&models.SchemaMismatchError{})
		}
	}
	return nil
}

func mapClasses(classes []int) ([]int, error) {
	if len(classes) != len(models.ClassOrder) {
		return nil, &ArtifactError{Errors: []FieldError{{Field: "classes", Message: fmt.Sprintf("expected %d classes, got %d", len(models.ClassOrder), len(classes))}}}
	}
	idx := make([]int, len(classes))
	for j, c := range classes {
		i := models.ClassIndex(c)
		if i < 0 {
			return nil, &ArtifactError{Errors: []FieldError{{Field: fmt.Sprintf("classes.%d", j), Message: fmt.Sprintf("unknown class %d", c)}}}
		}
		idx[j] = i
	}
	return idx, nil
}

func normalise(v []float64, n int) ([]float64, string) {
	if len(v) != n {
		return nil, fmt.Sprintf("expected %d values, got %d", n, len(v))
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return nil, "leaf distribution is empty"
	}
	out := make([]float64, n)
	for i, x := range v {
		out[i] = x / sum
	}
	return out, ""
}
