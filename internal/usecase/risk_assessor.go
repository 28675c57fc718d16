package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CreditRisk/internal/catalog"
	"CreditRisk/internal/domain/models"
	drepo "CreditRisk/internal/domain/repository"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/internal/services/features"
	"CreditRisk/pkg/logger"

	"github.com/google/uuid"
)

// FailureKind tags why a submission did not produce an assessment.
type FailureKind string

const (
	FailureUnavailable    FailureKind = "unavailable"
	FailureOutOfRange     FailureKind = "out_of_range"
	FailureUnknownLabel   FailureKind = "unknown_label"
	FailureUnknownCode    FailureKind = "unknown_code"
	FailureSchemaMismatch FailureKind = "schema_mismatch"
	FailureInference      FailureKind = "inference"
)

// Failure is the single user-visible message for a rejected submission.
type Failure struct {
	Kind    FailureKind
	Message string
	Field   models.FeatureName
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Assessment is a completed prediction together with the record it was made on.
type Assessment struct {
	ID           string
	Timestamp    time.Time
	Record       models.ApplicantRecord
	Decision     models.Decision
	Echo         []models.EchoRow
	ModelVersion string
	Cached       bool
}

// Result carries either an assessment or a failure, never both.
type Result struct {
	Assessment *Assessment
	Failure    *Failure
}

// OK reports whether the submission produced an assessment.
func (r Result) OK() bool { return r.Assessment != nil }

// Model is the inference engine as loaded at start-up. Err is set when loading failed,
// in which case prediction stays disabled for the life of the process.
type Model struct {
	Predictor domsvc.VersionedPredictor
	Err       error
}

// RiskAssessor is the submission boundary: every error raised while assessing an
// applicant is converted to a Failure here.
type RiskAssessor struct {
	catalog   *catalog.Catalog
	assembler *features.Assembler
	model     Model
	cache     drepo.PredictionCache
	audit     *AuditRecorder
	metrics   drepo.Metrics
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewRiskAssessor wires an assessor. cache and audit may be nil; the cache is
// dropped when the predictor's answers cannot be pinned to its version.
func NewRiskAssessor(
	cat *catalog.Catalog,
	assembler *features.Assembler,
	model Model,
	cache drepo.PredictionCache,
	audit *AuditRecorder,
	metrics drepo.Metrics,
	log *logger.Logger,
) *RiskAssessor {
	if model.Err == nil && model.Predictor == nil {
		model.Err = errors.New("no model configured")
	}
	metrics.SetModelAvailable(model.Err == nil)
	if model.Predictor != nil && !domsvc.Cacheable(model.Predictor) {
		cache = nil
	}
	return &RiskAssessor{
		catalog:   cat,
		assembler: assembler,
		model:     model,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Catalog exposes the encoding tables used to build the form.
func (a *RiskAssessor) Catalog() *catalog.Catalog { return a.catalog }

// NumericSpecs lists the numeric inputs with their bounds, in schema order.
func (a *RiskAssessor) NumericSpecs() []models.NumericSpec {
	specs := models.NumericSpecs()
	byName := make(map[models.FeatureName]models.NumericSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	out := make([]models.NumericSpec, 0, len(specs))
	for _, name := range a.assembler.Schema() {
		if s, ok := byName[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Schema returns the column order records are assembled in.
func (a *RiskAssessor) Schema() []models.FeatureName { return a.assembler.Schema() }

// Available reports whether a model was loaded.
func (a *RiskAssessor) Available() bool { return a.model.Err == nil }

// Unavailable returns the start-up error that disabled prediction, or nil.
func (a *RiskAssessor) Unavailable() error { return a.model.Err }

// ModelVersion identifies the loaded model, or is empty when none is loaded.
func (a *RiskAssessor) ModelVersion() string {
	if !a.Available() {
		return ""
	}
	return a.model.Predictor.Version()
}

// Submit assesses one applicant.
func (a *RiskAssessor) Submit(ctx context.Context, raw models.RawApplicant) Result {
	if !a.Available() {
		return a.fail(&Failure{
			Kind:    FailureUnavailable,
			Message: "The risk model is not available, so predictions are disabled.",
			Err:     a.model.Err,
		})
	}

	record, err := a.assembler.Assemble(raw)
	if err != nil {
		return a.fail(classify(err))
	}

	version := a.model.Predictor.Version()
	key := version + ":" + record.Fingerprint()

	pred, cached := a.lookup(ctx, key)
	if !cached {
		start := a.now()
		pred, err = a.model.Predictor.Predict(ctx, record)
		a.metrics.RecordInferenceLatency(a.now().Sub(start).Seconds())
		if err != nil {
			return a.fail(classify(&models.InferenceError{Err: err}))
		}
	}

	decision, err := Decide(pred)
	if err != nil {
		return a.fail(classify(&models.InferenceError{Err: err}))
	}
	echo, err := a.echo(record)
	if err != nil {
		return a.fail(classify(err))
	}

	if !cached {
		a.store(ctx, key, pred)
	}

	as := &Assessment{
		ID:           a.newID(),
		Timestamp:    a.now().UTC(),
		Record:       record,
		Decision:     decision,
		Echo:         echo,
		ModelVersion: version,
		Cached:       cached,
	}
	a.recordAudit(ctx, as)
	a.metrics.RecordAssessment(decision.Outcome, decision.Confidence, cached)
	a.log.Info("assessment completed",
		logger.String("id", as.ID),
		logger.String("outcome", string(decision.Outcome)),
		logger.Float64("confidence", decision.Confidence),
		logger.Bool("cached", cached),
		logger.String("model_version", version),
	)
	return Result{Assessment: as}
}

func (a *RiskAssessor) lookup(ctx context.Context, key string) (models.Prediction, bool) {
	if a.cache == nil {
		return models.Prediction{}, false
	}
	p, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.log.Warn("prediction cache lookup failed", logger.Error(err))
		ok = false
	}
	a.metrics.RecordCacheLookup(ok)
	return p, ok
}

func (a *RiskAssessor) store(ctx context.Context, key string, p models.Prediction) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, p); err != nil {
		a.log.Warn("prediction cache store failed", logger.Error(err))
	}
}

func (a *RiskAssessor) recordAudit(ctx context.Context, as *Assessment) {
	if a.audit == nil {
		return
	}
	err := a.audit.Record(ctx, &models.AuditEvent{
		ID:           as.ID,
		Timestamp:    as.Timestamp,
		ModelVersion: as.ModelVersion,
		Columns:      as.Record.Columns(),
		Values:       as.Record.Values(),
		Class:        as.Decision.Class,
		Outcome:      as.Decision.Outcome,
		Confidence:   as.Decision.Confidence,
		Cached:       as.Cached,
	})
	if err != nil {
		a.log.Error("audit failed",
			logger.String("id", as.ID),
			logger.String("backend", a.audit.Backend()),
			logger.Error(err),
		)
	}
}

// echo lists the exact record sent to inference, with the catalog label of every
// categorical value.
func (a *RiskAssessor) echo(record models.ApplicantRecord) ([]models.EchoRow, error) {
	cols, vals := record.Columns(), record.Values()
	rows := make([]models.EchoRow, len(cols))
	for i, name := range cols {
		rows[i] = models.EchoRow{Name: name, Value: vals[i]}
		if !a.catalog.Has(name) {
			continue
		}
		label, err := a.catalog.Decode(name, vals[i])
		if err != nil {
			return nil, err
		}
		rows[i].Label = label
	}
	return rows, nil
}

func (a *RiskAssessor) fail(f *Failure) Result {
	a.metrics.RecordFailure(string(f.Kind))
	switch f.Kind {
	case FailureOutOfRange, FailureUnknownLabel:
		a.log.Warn("assessment rejected", logger.String("kind", string(f.Kind)), logger.Error(f.Err))
	default:
		a.log.Error("assessment failed", logger.String("kind", string(f.Kind)), logger.Error(f.Err))
	}
	return Result{Failure: f}
}

// classify maps a domain error onto its failure kind.
func classify(err error) *Failure {
	var (
		outOfRange   *models.OutOfRangeError
		unknownLabel *models.UnknownLabelError
		unknownCode  *models.UnknownCodeError
		mismatch     *models.SchemaMismatchError
		inference    *models.InferenceError
		missing      *models.MissingArtifactError
	)
	switch {
	case errors.As(err, &outOfRange):
		return &Failure{Kind: FailureOutOfRange, Field: outOfRange.Feature, Err: err,
			Message: fmt.Sprintf("%s must be between %d and %d.", outOfRange.Feature, outOfRange.Min, outOfRange.Max)}
	case errors.As(err, &unknownLabel):
		return &Failure{Kind: FailureUnknownLabel, Field: unknownLabel.Feature, Err: err,
			Message: fmt.Sprintf("%q is not a valid choice for %s.", unknownLabel.Label, unknownLabel.Feature)}
	case errors.As(err, &unknownCode):
		return &Failure{Kind: FailureUnknownCode, Field: unknownCode.Feature, Err: err,
			Message: fmt.Sprintf("Internal error: code %d has no label for %s.", unknownCode.Code, unknownCode.Feature)}
	case errors.As(err, &mismatch):
		return &Failure{Kind: FailureSchemaMismatch, Err: err,
			Message: "Internal error: the application form does not match the model (" + mismatch.Error() + ")."}
	case errors.As(err, &inference):
		return &Failure{Kind: FailureInference, Err: err,
			Message: "The prediction could not be completed: " + inference.Err.Error()}
	case errors.As(err, &missing):
		return &Failure{Kind: FailureUnavailable, Err: err,
			Message: "The risk model is not available, so predictions are disabled."}
	default:
		return &Failure{Kind: FailureInference, Err: err,
			Message: "The prediction could not be completed: " + err.Error()}
	}
}
