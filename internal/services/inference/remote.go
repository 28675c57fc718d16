package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
	svcmetrics "CreditRisk/internal/service/metrics"
	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"
)

// HTTPServiceBase holds the client and base URL shared by HTTP model adapters.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Model.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.Model.RemoteURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// RemotePredictor asks a model server for predictions. It is not retried: a failed call
// fails the submission.
type RemotePredictor struct {
	base *HTTPServiceBase
}

func NewRemotePredictor(cfg *config.Config) *RemotePredictor {
	svcmetrics.Register()
	return &RemotePredictor{base: NewHTTPServiceBase(cfg)}
}

type predictReq struct {
	Columns []models.FeatureName `json:"columns"`
	Rows    [][]int              `json:"rows"`
}

type predictResp struct {
	Prediction []int       `json:"prediction"`
	Proba      [][]float64 `json:"proba"`
	Classes    []int       `json:"classes"`
}

func (r *RemotePredictor) Version() string { return "remote:" + r.base.baseURL }

// Cacheable is false: the server behind the URL can be redeployed with another model.
func (r *RemotePredictor) Cacheable() bool { return false }

func (r *RemotePredictor) Predict(ctx context.Context, record models.ApplicantRecord) (models.Prediction, error) {
	var pr predictResp
	req := predictReq{Columns: record.Columns(), Rows: [][]int{record.Values()}}
	start := time.Now()
	err := r.base.PostJSON(ctx, "/predict", req, &pr)
	svcmetrics.ObserveRemote("/predict", start, err)
	if err != nil {
		return models.Prediction{}, remoteError(err)
	}
	if len(pr.Prediction) != 1 || len(pr.Proba) != 1 {
		return models.Prediction{}, fmt.Errorf("expected one prediction, got %d: %w", len(pr.Prediction), models.ErrMalformedPrediction)
	}

	classes := pr.Classes
	if len(classes) == 0 {
		classes = models.ClassOrder[:]
	}
	if len(classes) != len(pr.Proba[0]) {
		return models.Prediction{}, fmt.Errorf("%d classes for %d probabilities: %w", len(classes), len(pr.Proba[0]), models.ErrMalformedPrediction)
	}
	proba := make([]float64, len(models.ClassOrder))
	seen := make([]bool, len(models.ClassOrder))
	for j, c := range classes {
		i := models.ClassIndex(c)
		if i < 0 || seen[i] {
			return models.Prediction{}, fmt.Errorf("unexpected class %d: %w", c, models.ErrMalformedPrediction)
		}
		seen[i] = true
		proba[i] = pr.Proba[0][j]
	}
	return models.Prediction{Class: pr.Prediction[0], Proba: proba}, nil
}

// remoteError tells a record the server refused apart from an answer that cannot be
// read and from a server that is down.
func remoteError(err error) error {
	var se *xhttp.StatusError
	switch {
	case errors.As(err, &se) && !se.Temporary():
		return fmt.Errorf("model server rejected the record: %w", err)
	case errors.Is(err, xhttp.ErrDecode):
		return fmt.Errorf("%w: %w", models.ErrMalformedPrediction, err)
	default:
		return fmt.Errorf("model server unavailable: %w", err)
	}
}

var (
	_ domsvc.VersionedPredictor = (*RemotePredictor)(nil)
	_ domsvc.CachePolicy        = (*RemotePredictor)(nil)
)
