package inference

import (
	"context"
	"fmt"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
)

const leaf = -1

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	dist      []float64 // normalised class distribution, leaves only
}

type tree struct {
	nodes []node
}

// Forest evaluates a tree ensemble exported from a fitted random forest.
// It is read-only after loading and safe for concurrent use.
type Forest struct {
	version  string
	features []models.FeatureName
	// classIdx maps the artifact's class position to its models.ClassOrder position.
	classIdx []int
	trees    []tree
}

// Version identifies the loaded artifact.
func (f *Forest) Version() string { return f.version }

// Trees returns the ensemble size.
func (f *Forest) Trees() int { return len(f.trees) }

// Predict averages the leaf distributions of every tree and picks the most likely class.
func (f *Forest) Predict(ctx context.Context, record models.ApplicantRecord) (models.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return models.Prediction{}, err
	}
	if record.Len() != len(f.features) {
		return models.Prediction{}, fmt.Errorf("forest: record has %d columns, model expects %d", record.Len(), len(f.features))
	}
	x := record.Vector()

	proba := make([]float64, len(models.ClassOrder))
	for _, t := range f.trees {
		dist, err := t.evaluate(x)
		if err != nil {
			return models.Prediction{}, err
		}
		for j, p := range dist {
			proba[f.classIdx[j]] += p
		}
	}
	n := float64(len(f.trees))
	best := 0
	for i := range proba {
		proba[i] /= n
		if proba[i] > proba[best] {
			best = i
		}
	}
	return models.Prediction{Class: models.ClassOrder[best], Proba: proba}, nil
}

func (t tree) evaluate(x []float64) ([]float64, error) {
	i := 0
	// children always sit after their parent, so a walk is bounded by len(nodes)
	for steps := 0; steps <= len(t.nodes); steps++ {
		n := t.nodes[i]
		if n.left == leaf {
			return n.dist, nil
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return nil, fmt.Errorf("forest: tree walk did not reach a leaf")
}

var _ domsvc.VersionedPredictor = (*Forest)(nil)
