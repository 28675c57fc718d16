package api

import (
	models "CreditRisk/internal/domain/models"
	"CreditRisk/internal/usecase"
	xhttp "CreditRisk/pkg/http"
	"CreditRisk/pkg/http/middleware"
	xlogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/util"

	"github.com/labstack/echo/v4"
)

// AssessmentHandler serves the JSON API over the risk assessor.
type AssessmentHandler struct {
	logger   *xlogger.Logger
	assessor *usecase.RiskAssessor
	limiter  middleware.Allower
}

// NewAssessmentHandler creates the API handler. limiter may be nil to disable rate limiting.
func NewAssessmentHandler(logger *xlogger.Logger, assessor *usecase.RiskAssessor, limiter middleware.Allower) *AssessmentHandler {
	return &AssessmentHandler{logger: logger, assessor: assessor, limiter: limiter}
}

func (h *AssessmentHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/catalog", h.Catalog)
	g.GET("/schema", h.Schema)
	g.POST("/assessments", h.Assess, middleware.RateLimit(h.limiter))
}

// Catalog lists every accepted input: categorical labels and numeric bounds.
func (h *AssessmentHandler) Catalog(c echo.Context) error {
	cat := h.assessor.Catalog()
	res := models.CatalogResponse{}

	for _, name := range cat.Features() {
		def, err := cat.Feature(name)
		if err != nil {
			h.logger.Error("catalog lookup error", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
		labels := make([]string, len(def.Levels))
		for i, l := range def.Levels {
			labels[i] = l.Label
		}
		res.Categorical = append(res.Categorical, models.CatalogFeature{
			Name:   name,
			Field:  util.SnakeCase(string(name)),
			Title:  def.Title,
			Labels: labels,
		})
	}
	for _, s := range h.assessor.NumericSpecs() {
		res.Numeric = append(res.Numeric, models.NumericField{
			NumericSpec: s,
			Field:       util.SnakeCase(string(s.Name)),
		})
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

// Schema reports the column order records are assembled in.
func (h *AssessmentHandler) Schema(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.SchemaResponse{
		Columns:        h.assessor.Schema(),
		ModelAvailable: h.assessor.Available(),
		ModelVersion:   h.assessor.ModelVersion(),
	})
}

// Assess runs one applicant through the assessor.
func (h *AssessmentHandler) Assess(c echo.Context) error {
	req := &models.AssessmentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.assessor.Submit(c.Request().Context(), req.Raw())
	if !res.OK() {
		return xhttp.AppErrorResponse(c, failureError(res.Failure))
	}
	return xhttp.SuccessResponse(c, toResponse(res.Assessment))
}

// Health always answers 200 while the process is up; a missing model is reported, not fatal.
func (h *AssessmentHandler) Health(c echo.Context) error {
	res := models.HealthResponse{
		Status:         "ok",
		ModelAvailable: h.assessor.Available(),
		ModelVersion:   h.assessor.ModelVersion(),
	}
	if err := h.assessor.Unavailable(); err != nil {
		res.Status = "degraded"
		res.Reason = err.Error()
	}
	return xhttp.SuccessResponse(c, res)
}

func toResponse(as *usecase.Assessment) models.AssessmentResponse {
	d := as.Decision
	return models.AssessmentResponse{
		ID:                as.ID,
		Outcome:           d.Outcome,
		Class:             d.Class,
		Label:             d.Label,
		Confidence:        d.Confidence,
		ConfidencePercent: d.ConfidencePercent(),
		Proba:             d.Proba,
		ModelVersion:      as.ModelVersion,
		Cached:            as.Cached,
		Record:            as.Echo,
	}
}
