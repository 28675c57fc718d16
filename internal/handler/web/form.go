package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	models "CreditRisk/internal/domain/models"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/http/middleware"
	xlogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/util"

	"github.com/labstack/echo/v4"
)

const formTemplate = "form.html"

// FormHandler serves the HTML assessment form.
type FormHandler struct {
	logger   *xlogger.Logger
	assessor *usecase.RiskAssessor
	limiter  middleware.Allower
	renderer *Renderer
}

// NewFormHandler creates the form handler. limiter may be nil to disable rate limiting.
func NewFormHandler(logger *xlogger.Logger, assessor *usecase.RiskAssessor, limiter middleware.Allower) (*FormHandler, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &FormHandler{logger: logger, assessor: assessor, limiter: limiter, renderer: r}, nil
}

func (h *FormHandler) RegisterRoutes(e *echo.Echo) {
	e.Renderer = h.renderer
	e.GET("/", h.Show)
	e.POST("/", h.Submit, middleware.RateLimit(h.limiter))
}

type option struct {
	Label    string
	Selected bool
}

type selectField struct {
	Name    string
	Title   string
	Options []option
}

type numberField struct {
	Name  string
	Title string
	Min   int
	Max   int
	Step  int
	Value string
}

type resultRow struct {
	Title string
	Value int
	Label string
}

type resultView struct {
	Outcome    models.Outcome
	Favorable  bool
	Confidence string
	Rows       []resultRow
}

type page struct {
	Available    bool
	Diagnostic   string
	ModelVersion string
	Categorical  []selectField
	Numeric      []numberField
	Error        string
	Result       *resultView
}

// Show renders the empty form with default values.
func (h *FormHandler) Show(c echo.Context) error {
	p, err := h.newPage(nil, nil)
	if err != nil {
		h.logger.Error("build form error", xlogger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Render(http.StatusOK, formTemplate, p)
}

// Submit assesses the posted applicant and renders the form with the decision or one error.
func (h *FormHandler) Submit(c echo.Context) error {
	labels := make(map[models.FeatureName]string)
	for _, name := range h.assessor.Catalog().Features() {
		labels[name] = c.FormValue(string(name))
	}
	numbers := make(map[models.FeatureName]string)
	for _, s := range h.assessor.NumericSpecs() {
		numbers[s.Name] = c.FormValue(string(s.Name))
	}

	p, err := h.newPage(labels, numbers)
	if err != nil {
		h.logger.Error("build form error", xlogger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	raw, perr := parseApplicant(labels, numbers, h.assessor.NumericSpecs())
	if perr != "" {
		p.Error = perr
		return c.Render(http.StatusOK, formTemplate, p)
	}

	res := h.assessor.Submit(c.Request().Context(), raw)
	if !res.OK() {
		p.Error = res.Failure.Message
		return c.Render(http.StatusOK, formTemplate, p)
	}
	p.Result = newResultView(res.Assessment, h.titles())
	return c.Render(http.StatusOK, formTemplate, p)
}

// parseApplicant converts form values; an empty number takes the field default.
func parseApplicant(labels, numbers map[models.FeatureName]string, specs []models.NumericSpec) (models.RawApplicant, string) {
	raw := models.NewRawApplicant()
	for name, label := range labels {
		raw.Labels[name] = label
	}
	for _, s := range specs {
		v := strings.TrimSpace(numbers[s.Name])
		if v == "" {
			raw.Numbers[s.Name] = s.Default
			continue
		}
		n, err := util.ParseInt(v)
		if err != nil {
			return raw, fmt.Sprintf("%s must be a whole number between %d and %d.", s.Title, s.Min, s.Max)
		}
		raw.Numbers[s.Name] = n
	}
	return raw, ""
}

// newPage builds the form, preselecting submitted values when present.
func (h *FormHandler) newPage(labels, numbers map[models.FeatureName]string) (*page, error) {
	p := &page{
		Available:    h.assessor.Available(),
		ModelVersion: h.assessor.ModelVersion(),
	}
	if err := h.assessor.Unavailable(); err != nil {
		p.Diagnostic = err.Error()
	}

	cat := h.assessor.Catalog()
	for _, name := range cat.Features() {
		def, err := cat.Feature(name)
		if err != nil {
			return nil, err
		}
		chosen, submitted := labels[name]
		f := selectField{Name: string(name), Title: def.Title}
		for i, l := range def.Levels {
			sel := i == 0
			if submitted {
				sel = l.Label == chosen
			}
			f.Options = append(f.Options, option{Label: l.Label, Selected: sel})
		}
		p.Categorical = append(p.Categorical, f)
	}

	for _, s := range h.assessor.NumericSpecs() {
		v := strconv.Itoa(s.Default)
		if sv, ok := numbers[s.Name]; ok && strings.TrimSpace(sv) != "" {
			v = sv
		}
		p.Numeric = append(p.Numeric, numberField{
			Name:  string(s.Name),
			Title: s.Title,
			Min:   s.Min,
			Max:   s.Max,
			Step:  s.Step,
			Value: v,
		})
	}
	return p, nil
}

func (h *FormHandler) titles() map[models.FeatureName]string {
	out := make(map[models.FeatureName]string)
	cat := h.assessor.Catalog()
	for _, name := range cat.Features() {
		if def, err := cat.Feature(name); err == nil {
			out[name] = def.Title
		}
	}
	for _, s := range h.assessor.NumericSpecs() {
		out[s.Name] = s.Title
	}
	return out
}

func newResultView(as *usecase.Assessment, titles map[models.FeatureName]string) *resultView {
	v := &resultView{
		Outcome:    as.Decision.Outcome,
		Favorable:  as.Decision.Favorable(),
		Confidence: as.Decision.ConfidencePercent(),
	}
	for _, r := range as.Echo {
		title, ok := titles[r.Name]
		if !ok {
			title = util.Humanize(string(r.Name))
		}
		v.Rows = append(v.Rows, resultRow{Title: title, Value: r.Value, Label: r.Label})
	}
	return v
}
