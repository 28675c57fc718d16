package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"CreditRisk/internal/catalog"
	models "CreditRisk/internal/domain/models"
	"CreditRisk/internal/services/features"
	"CreditRisk/internal/services/inference"
	"CreditRisk/internal/usecase"
	xlogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"
	"CreditRisk/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newAssessor(t *testing.T, model usecase.Model) *usecase.RiskAssessor {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	asm := features.NewAssembler(cat, models.FeatureSchema(), models.NumericSpecs())
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())
	return usecase.NewRiskAssessor(cat, asm, model, nil, nil, rec, xlogger.NewNop())
}

func forestModel(t *testing.T) usecase.Model {
	t.Helper()
	f, err := inference.LoadForest("../../services/inference/testdata/forest.json", models.FeatureSchema())
	require.NoError(t, err)
	return usecase.Model{Predictor: f}
}

func newServer(t *testing.T, model usecase.Model, limiter interface{ Allow(string) bool }) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewAssessmentHandler(xlogger.NewNop(), newAssessor(t, model), limiter).RegisterRoutes(e)
	return e
}

// referenceBody picks the first label of every categorical feature, then the
// values the reference applicant uses.
func referenceBody(t *testing.T) map[string]interface{} {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	body := map[string]interface{}{}
	for _, name := range cat.Features() {
		labels, err := cat.LabelsFor(name)
		require.NoError(t, err)
		body[util.SnakeCase(string(name))] = labels[0]
	}
	body["status"] = "no checking account"
	body["credit_history"] = "existing credits paid back duly till now"
	body["purpose"] = "car (new)"
	body["duration"] = 24
	body["credit_amount"] = 2500
	return body
}

func do(e *echo.Echo, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestAssess_ReferenceApplicant(t *testing.T) {
	e := newServer(t, forestModel(t), nil)

	rec, env := do(e, http.MethodPost, "/api/assessments", referenceBody(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.AssessmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.OutcomeFavorable, res.Outcome)
	assert.Equal(t, 1, res.Class)
	assert.Equal(t, "80.00%", res.ConfidencePercent)
	assert.InDeltaSlice(t, []float64{0.8, 0.2}, res.Proba, 1e-9)
	assert.NotEmpty(t, res.ID)
	assert.True(t, strings.HasPrefix(res.ModelVersion, "fixture@"), res.ModelVersion)
	require.Len(t, res.Record, len(models.FeatureSchema()))
	assert.Equal(t, models.EchoRow{Name: models.Status, Value: 3, Label: "no checking account"}, res.Record[0])
}

func TestAssess_NumericDefaultsApply(t *testing.T) {
	e := newServer(t, forestModel(t), nil)
	body := referenceBody(t)
	delete(body, "duration")
	delete(body, "credit_amount")

	rec, env := do(e, http.MethodPost, "/api/assessments", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.AssessmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.EchoRow{Name: models.Duration, Value: 24}, res.Record[1])
	assert.Equal(t, models.EchoRow{Name: models.CreditAmount, Value: 2500}, res.Record[4])
}

func TestAssess_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		status int
		code   string
		field  string
	}{
		{
			name:   "duration out of range",
			mutate: func(b map[string]interface{}) { b["duration"] = 100 },
			status: http.StatusBadRequest,
			code:   ErrCodeOutOfRange,
			field:  "duration",
		},
		{
			name:   "explicit zero is out of range",
			mutate: func(b map[string]interface{}) { b["age"] = 0 },
			status: http.StatusBadRequest,
			code:   ErrCodeOutOfRange,
			field:  "age",
		},
		{
			name:   "unknown label",
			mutate: func(b map[string]interface{}) { b["purpose"] = "spaceship" },
			status: http.StatusBadRequest,
			code:   ErrCodeUnknownLabel,
			field:  "purpose",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(t, forestModel(t), nil)
			body := referenceBody(t)
			tt.mutate(body)

			rec, env := do(e, http.MethodPost, "/api/assessments", body)
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, env.Status)

			var errs []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0]["code"])
			assert.Equal(t, tt.field, errs[0]["field"])
			assert.NotEmpty(t, errs[0]["message"])
		})
	}
}

func TestAssess_OutOfRangeParams(t *testing.T) {
	e := newServer(t, forestModel(t), nil)
	body := referenceBody(t)
	body["credit_amount"] = 100

	_, env := do(e, http.MethodPost, "/api/assessments", body)
	var errs []struct {
		Params map[string]float64 `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, map[string]float64{"min": 250, "max": 20000, "value": 100}, errs[0].Params)
}

func TestAssess_MissingLabelIsValidationError(t *testing.T) {
	e := newServer(t, forestModel(t), nil)
	body := referenceBody(t)
	delete(body, "housing")

	rec, env := do(e, http.MethodPost, "/api/assessments", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED", errs[0]["code"])
	assert.Equal(t, "housing", errs[0]["field"])
}

func TestAssess_ModelUnavailable(t *testing.T) {
	missing := &models.MissingArtifactError{Path: "models/none.json", Err: errors.New("no such file")}
	e := newServer(t, usecase.Model{Err: missing}, nil)

	rec, env := do(e, http.MethodPost, "/api/assessments", referenceBody(t))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	assert.Equal(t, ErrCodeModelUnavailable, errs[0]["code"])
}

func TestAssess_RateLimited(t *testing.T) {
	e := newServer(t, forestModel(t), denyAll{})

	rec, _ := do(e, http.MethodPost, "/api/assessments", referenceBody(t))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec, _ = do(e, http.MethodGet, "/api/catalog", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalog(t *testing.T) {
	e := newServer(t, forestModel(t), nil)

	rec, env := do(e, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.CatalogResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Categorical, 13)
	assert.Equal(t, models.Status, res.Categorical[0].Name)
	assert.Equal(t, "status", res.Categorical[0].Field)
	assert.Contains(t, res.Categorical[0].Labels, "no checking account")

	require.Len(t, res.Numeric, 7)
	assert.Equal(t, models.Duration, res.Numeric[0].Name)
	assert.Equal(t, "duration", res.Numeric[0].Field)
	assert.Equal(t, 4, res.Numeric[0].Min)
	assert.Equal(t, 72, res.Numeric[0].Max)
}

func TestSchema(t *testing.T) {
	e := newServer(t, forestModel(t), nil)

	_, env := do(e, http.MethodGet, "/api/schema", nil)
	var res models.SchemaResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.FeatureSchema(), res.Columns)
	assert.True(t, res.ModelAvailable)
}

func TestHealth(t *testing.T) {
	e := newServer(t, forestModel(t), nil)
	_, env := do(e, http.MethodGet, "/healthz", nil)
	var res models.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "ok", res.Status)
	assert.True(t, res.ModelAvailable)

	e = newServer(t, usecase.Model{Err: &models.MissingArtifactError{Path: "x.json"}}, nil)
	rec, env := do(e, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "degraded", res.Status)
	assert.False(t, res.ModelAvailable)
	assert.Contains(t, res.Reason, "x.json")
}

func TestFailureError_Mapping(t *testing.T) {
	tests := []struct {
		kind   usecase.FailureKind
		code   string
		status int
	}{
		{usecase.FailureOutOfRange, ErrCodeOutOfRange, http.StatusBadRequest},
		{usecase.FailureUnknownLabel, ErrCodeUnknownLabel, http.StatusBadRequest},
		{usecase.FailureUnknownCode, ErrCodeUnknownCode, http.StatusInternalServerError},
		{usecase.FailureSchemaMismatch, ErrCodeSchemaMismatch, http.StatusInternalServerError},
		{usecase.FailureInference, ErrCodeInference, http.StatusBadGateway},
		{usecase.FailureUnavailable, ErrCodeModelUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		appErr := failureError(&usecase.Failure{Kind: tt.kind, Message: "m"})
		assert.Equal(t, tt.code, appErr.Code, tt.kind)
		assert.Equal(t, tt.status, appErr.Status, tt.kind)
	}
}
