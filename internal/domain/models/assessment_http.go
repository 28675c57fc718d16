package models

// AssessmentRequest is the JSON body of POST /api/assessments.
// Categorical fields carry the human-readable label shown by GET /api/catalog.
// Numeric fields left out of the body take the form defaults; range checks happen
// in the assembler so that an out-of-range value is reported as such.
type AssessmentRequest struct {
	Status                string `json:"status" validate:"required"`
	CreditHistory         string `json:"credit_history" validate:"required"`
	Purpose               string `json:"purpose" validate:"required"`
	Savings               string `json:"savings" validate:"required"`
	EmploymentSince       string `json:"employment_since" validate:"required"`
	PersonalStatusSex     string `json:"personal_status_sex" validate:"required"`
	DebtorsGuarantors     string `json:"debtors_guarantors" validate:"required"`
	Property              string `json:"property" validate:"required"`
	OtherInstallmentPlans string `json:"other_installment_plans" validate:"required"`
	Housing               string `json:"housing" validate:"required"`
	Job                   string `json:"job" validate:"required"`
	Telephone             string `json:"telephone" validate:"required"`
	ForeignWorker         string `json:"foreign_worker" validate:"required"`

	Duration        *int `json:"duration" default:"24"`
	CreditAmount    *int `json:"credit_amount" default:"2500"`
	InstallmentRate *int `json:"installment_rate" default:"3"`
	ResidenceSince  *int `json:"residence_since" default:"2"`
	Age             *int `json:"age" default:"35"`
	ExistingCredits *int `json:"existing_credits" default:"1"`
	NumPeopleLiable *int `json:"num_people_liable" default:"1"`
}

// Raw converts the request into an unresolved applicant.
func (r *AssessmentRequest) Raw() RawApplicant {
	raw := NewRawApplicant()
	raw.Labels[Status] = r.Status
	raw.Labels[CreditHistory] = r.CreditHistory
	raw.Labels[Purpose] = r.Purpose
	raw.Labels[Savings] = r.Savings
	raw.Labels[EmploymentSince] = r.EmploymentSince
	raw.Labels[PersonalStatusSex] = r.PersonalStatusSex
	raw.Labels[DebtorsGuarantors] = r.DebtorsGuarantors
	raw.Labels[Property] = r.Property
	raw.Labels[OtherInstallmentPlans] = r.OtherInstallmentPlans
	raw.Labels[Housing] = r.Housing
	raw.Labels[Job] = r.Job
	raw.Labels[Telephone] = r.Telephone
	raw.Labels[ForeignWorker] = r.ForeignWorker

	setNumber(raw, Duration, r.Duration)
	setNumber(raw, CreditAmount, r.CreditAmount)
	setNumber(raw, InstallmentRate, r.InstallmentRate)
	setNumber(raw, ResidenceSince, r.ResidenceSince)
	setNumber(raw, Age, r.Age)
	setNumber(raw, ExistingCredits, r.ExistingCredits)
	setNumber(raw, NumPeopleLiable, r.NumPeopleLiable)
	return raw
}

func setNumber(raw RawApplicant, name FeatureName, v *int) {
	if v != nil {
		raw.Numbers[name] = *v
	}
}

// AssessmentResponse is the data payload of a successful assessment.
type AssessmentResponse struct {
	ID                string    `json:"id"`
	Outcome           Outcome   `json:"outcome"`
	Class             int       `json:"class"`
	Label             string    `json:"label"`
	Confidence        float64   `json:"confidence"`
	ConfidencePercent string    `json:"confidence_percent"`
	Proba             []float64 `json:"proba"`
	ModelVersion      string    `json:"model_version"`
	Cached            bool      `json:"cached"`
	Record            []EchoRow `json:"record"`
}

// CatalogFeature is one categorical input as listed by GET /api/catalog.
type CatalogFeature struct {
	Name   FeatureName `json:"name"`
	Field  string      `json:"field"`
	Title  string      `json:"title"`
	Labels []string    `json:"labels"`
}

// NumericField is one numeric input as listed by GET /api/catalog.
type NumericField struct {
	NumericSpec
	Field string `json:"field"`
}

// CatalogResponse describes every input an assessment request accepts.
type CatalogResponse struct {
	Categorical []CatalogFeature `json:"categorical"`
	Numeric     []NumericField   `json:"numeric"`
}

// SchemaResponse is the column order records are sent to the model in.
type SchemaResponse struct {
	Columns        []FeatureName `json:"columns"`
	ModelAvailable bool          `json:"model_available"`
	ModelVersion   string        `json:"model_version,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status         string `json:"status"`
	ModelAvailable bool   `json:"model_available"`
	ModelVersion   string `json:"model_version,omitempty"`
	Reason         string `json:"reason,omitempty"`
}
