package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceRecord(t *testing.T) models.ApplicantRecord {
	t.Helper()
	rec, err := models.NewApplicantRecord(models.FeatureSchema(),
		[]int{3, 24, 2, 0, 2500, 0, 0, 3, 0, 0, 2, 0, 35, 0, 0, 1, 0, 1, 0, 0})
	require.NoError(t, err)
	return rec
}

func fixture(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "forest.json"))
	require.NoError(t, err)
	return b
}

func mutateFixture(t *testing.T, fn func(doc map[string]any)) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(fixture(t), &doc))
	fn(doc)
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

func TestLoadForest_AveragesTrees(t *testing.T) {
	f, err := LoadForest(filepath.Join("testdata", "forest.json"), models.FeatureSchema())
	require.NoError(t, err)
	assert.Equal(t, 2, f.Trees())
	assert.Regexp(t, `^fixture@[0-9a-f]{12}$`, f.Version())

	p, err := f.Predict(context.Background(), referenceRecord(t))
	require.NoError(t, err)
	assert.Equal(t, models.ClassGood, p.Class)
	require.Len(t, p.Proba, 2)
	assert.InDelta(t, 0.8, p.Proba[0], 1e-12)
	assert.InDelta(t, 0.2, p.Proba[1], 1e-12)
	assert.NoError(t, CheckPrediction(p))
}

func TestForest_FollowsSplits(t *testing.T) {
	f, err := ParseForest(fixture(t), models.FeatureSchema())
	require.NoError(t, err)

	values := referenceRecord(t).Values()
	values[0] = 0  // Status below the first split
	values[1] = 48 // Duration above the second split
	rec, err := models.NewApplicantRecord(models.FeatureSchema(), values)
	require.NoError(t, err)

	p, err := f.Predict(context.Background(), rec)
	require.NoError(t, err)
	// (0.25 + 0.5) / 2 for class 1, (0.75 + 0.5) / 2 for class 2
	assert.Equal(t, models.ClassBad, p.Class)
	assert.InDelta(t, 0.375, p.Proba[0], 1e-12)
	assert.InDelta(t, 0.625, p.Proba[1], 1e-12)
}

func TestParseForest_RealignsClasses(t *testing.T) {
	b := mutateFixture(t, func(doc map[string]any) {
		doc["classes"] = []int{2, 1}
	})
	f, err := ParseForest(b, models.FeatureSchema())
	require.NoError(t, err)

	p, err := f.Predict(context.Background(), referenceRecord(t))
	require.NoError(t, err)
	assert.Equal(t, models.ClassBad, p.Class)
	assert.InDelta(t, 0.2, p.Proba[0], 1e-12)
	assert.InDelta(t, 0.8, p.Proba[1], 1e-12)
}

func TestParseForest_UnversionedArtifact(t *testing.T) {
	b := mutateFixture(t, func(doc map[string]any) { delete(doc, "version") })
	f, err := ParseForest(b, models.FeatureSchema())
	require.NoError(t, err)
	assert.Regexp(t, `^unversioned@[0-9a-f]{12}$`, f.Version())
}

func TestLoadForest_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	_, err := LoadForest(path, models.FeatureSchema())

	var missing *models.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, path, missing.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadForest_CorruptIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("\x00\x01pickle"), 0o600))

	_, err := LoadForest(path, models.FeatureSchema())
	var missing *models.MissingArtifactError
	assert.ErrorAs(t, err, &missing)
}

func TestParseForest_SchemaMismatch(t *testing.T) {
	b := mutateFixture(t, func(doc map[string]any) {
		names := doc["feature_names"].([]any)
		names[len(names)-1] = "Citizenship"
	})
	_, err := ParseForest(b, models.FeatureSchema())

	var mismatch *models.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []models.FeatureName{models.ForeignWorker}, mismatch.Missing)
	assert.Equal(t, []models.FeatureName{"Citizenship"}, mismatch.Unexpected)
}

func TestParseForest_SchemaOrderMismatch(t *testing.T) {
	b := mutateFixture(t, func(doc map[string]any) {
		names := doc["feature_names"].([]any)
		names[0], names[1] = names[1], names[0]
	})
	_, err := ParseForest(b, models.FeatureSchema())

	var mismatch *models.SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestParseForest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"wrong format", func(doc map[string]any) { doc["format"] = "pickle" }},
		{"no trees", func(doc map[string]any) { doc["trees"] = []any{} }},
		{"unknown class", func(doc map[string]any) { doc["classes"] = []int{0, 1} }},
		{"three classes", func(doc map[string]any) { doc["classes"] = []int{1, 2, 3} }},
		{"child before parent", func(doc map[string]any) {
			tree := doc["trees"].([]any)[0].(map[string]any)
			tree["nodes"].([]any)[0].(map[string]any)["left"] = 0
		}},
		{"feature out of range", func(doc map[string]any) {
			tree := doc["trees"].([]any)[0].(map[string]any)
			tree["nodes"].([]any)[0].(map[string]any)["feature"] = 20
		}},
		{"leaf with wrong width", func(doc map[string]any) {
			tree := doc["trees"].([]any)[0].(map[string]any)
			tree["nodes"].([]any)[1].(map[string]any)["value"] = []float64{1}
		}},
		{"empty leaf", func(doc map[string]any) {
			tree := doc["trees"].([]any)[0].(map[string]any)
			tree["nodes"].([]any)[1].(map[string]any)["value"] = []float64{0, 0}
		}},
		{"negative leaf", func(doc map[string]any) {
			tree := doc["trees"].([]any)[0].(map[string]any)
			tree["nodes"].([]any)[1].(map[string]any)["value"] = []float64{-1, 2}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForest(mutateFixture(t, tt.mutate), models.FeatureSchema())
			var ae *ArtifactError
			assert.ErrorAs(t, err, &ae)
		})
	}
}

func TestParseForest_NotJSON(t *testing.T) {
	_, err := ParseForest([]byte("not json"), models.FeatureSchema())
	assert.Error(t, err)
}

func TestForest_RejectsShortRecord(t *testing.T) {
	f, err := ParseForest(fixture(t), models.FeatureSchema())
	require.NoError(t, err)

	rec, err := models.NewApplicantRecord([]models.FeatureName{models.Status}, []int{1})
	require.NoError(t, err)
	_, err = f.Predict(context.Background(), rec)
	assert.Error(t, err)
}

func TestDemoArtifactLoads(t *testing.T) {
	f, err := LoadForest(filepath.Join("..", "..", "..", "models", "german_credit_forest.json"), models.FeatureSchema())
	require.NoError(t, err)

	p, err := f.Predict(context.Background(), referenceRecord(t))
	require.NoError(t, err)
	assert.NoError(t, CheckPrediction(p))
}

func TestCheckPrediction(t *testing.T) {
	tests := []struct {
		name string
		p    models.Prediction
		ok   bool
	}{
		{"well formed", models.Prediction{Class: 1, Proba: []float64{0.8, 0.2}}, true},
		{"certain", models.Prediction{Class: 2, Proba: []float64{0, 1}}, true},
		{"within tolerance", models.Prediction{Class: 1, Proba: []float64{0.7, 0.3 + 5e-10}}, true},
		{"unknown class", models.Prediction{Class: 0, Proba: []float64{0.8, 0.2}}, false},
		{"wrong width", models.Prediction{Class: 1, Proba: []float64{1}}, false},
		{"does not sum to one", models.Prediction{Class: 1, Proba: []float64{0.8, 0.3}}, false},
		{"negative", models.Prediction{Class: 1, Proba: []float64{1.2, -0.2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrediction(tt.p)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, models.ErrMalformedPrediction)
		})
	}
}

func remoteConfig(url string) *config.Config {
	cfg, _ := config.Default()
	cfg.Model.Backend = "remote"
	cfg.Model.RemoteURL = url
	cfg.Model.Timeout = time.Second
	return cfg
}

func TestRemotePredictor_Predict(t *testing.T) {
	var got predictReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction":[2],"proba":[[0.35,0.65]],"classes":[1,2]}`))
	}))
	defer srv.Close()

	r := NewRemotePredictor(remoteConfig(srv.URL + "/"))
	assert.Equal(t, "remote:"+srv.URL, r.Version())

	p, err := r.Predict(context.Background(), referenceRecord(t))
	require.NoError(t, err)
	assert.Equal(t, models.ClassBad, p.Class)
	assert.Equal(t, []float64{0.35, 0.65}, p.Proba)
	assert.Equal(t, models.FeatureSchema(), got.Columns)
	assert.Equal(t, [][]int{referenceRecord(t).Values()}, got.Rows)
}

func TestRemotePredictor_RealignsClasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction":[1],"proba":[[0.1,0.9]],"classes":[2,1]}`))
	}))
	defer srv.Close()

	p, err := NewRemotePredictor(remoteConfig(srv.URL)).Predict(context.Background(), referenceRecord(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.1}, p.Proba)
}

func TestRemotePredictor_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `boom`},
		{"not json", http.StatusOK, `<html>`},
		{"no prediction", http.StatusOK, `{"prediction":[],"proba":[]}`},
		{"unknown class", http.StatusOK, `{"prediction":[1],"proba":[[0.5,0.5]],"classes":[0,1]}`},
		{"width mismatch", http.StatusOK, `{"prediction":[1],"proba":[[1]],"classes":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRemotePredictor(remoteConfig(srv.URL)).Predict(context.Background(), referenceRecord(t))
			assert.Error(t, err)
		})
	}
}

func TestRemotePredictor_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
		code      int
	}{
		{"rejected record", http.StatusUnprocessableEntity, `{"detail":"bad row"}`, false, http.StatusUnprocessableEntity},
		{"server down", http.StatusServiceUnavailable, ``, false, http.StatusServiceUnavailable},
		{"undecodable answer", http.StatusOK, `<html>`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRemotePredictor(remoteConfig(srv.URL)).Predict(context.Background(), referenceRecord(t))
			require.Error(t, err)
			assert.Equal(t, tt.malformed, errors.Is(err, models.ErrMalformedPrediction))

			var se *xhttp.StatusError
			if tt.code == 0 {
				assert.False(t, errors.As(err, &se))
				return
			}
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.StatusCode)
		})
	}
}

func TestRemotePredictor_IsNotCacheable(t *testing.T) {
	r := NewRemotePredictor(remoteConfig("http://model"))
	assert.False(t, domsvc.Cacheable(r))
	assert.False(t, domsvc.Cacheable(NewSerialized(r)))
	assert.True(t, domsvc.Cacheable(NewSerialized(&countingPredictor{})))
}

func TestRemotePredictor_NotConfigured(t *testing.T) {
	_, err := NewRemotePredictor(remoteConfig("")).Predict(context.Background(), referenceRecord(t))
	assert.Error(t, err)
}

type countingPredictor struct {
	active  int32
	maxSeen int32
}

func (c *countingPredictor) Version() string { return "counting" }

func (c *countingPredictor) Predict(ctx context.Context, _ models.ApplicantRecord) (models.Prediction, error) {
	n := atomic.AddInt32(&c.active, 1)
	defer atomic.AddInt32(&c.active, -1)
	for {
		m := atomic.LoadInt32(&c.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&c.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return models.Prediction{Class: 1, Proba: []float64{1, 0}}, nil
}

func TestSerialized_OneAtATime(t *testing.T) {
	inner := &countingPredictor{}
	s := NewSerialized(inner)
	assert.Equal(t, "counting", s.Version())

	rec := referenceRecord(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Predict(context.Background(), rec)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.maxSeen))
}

func TestSerialized_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSerialized(&countingPredictor{}).Predict(ctx, referenceRecord(t))
	assert.True(t, errors.Is(err, context.Canceled))
}
