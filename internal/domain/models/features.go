package models

// FeatureName is the canonical column name a feature is known by in the model's training data.
type FeatureName string

// Categorical features. Their values are ordinal codes resolved through the encoding catalog.
const (
	Status                FeatureName = "Status"
	CreditHistory         FeatureName = "CreditHistory"
	Purpose               FeatureName = "Purpose"
	Savings               FeatureName = "Savings"
	EmploymentSince       FeatureName = "EmploymentSince"
	PersonalStatusSex     FeatureName = "PersonalStatusSex"
	DebtorsGuarantors     FeatureName = "DebtorsGuarantors"
	Property              FeatureName = "Property"
	OtherInstallmentPlans FeatureName = "OtherInstallmentPlans"
	Housing               FeatureName = "Housing"
	Job                   FeatureName = "Job"
	Telephone             FeatureName = "Telephone"
	ForeignWorker         FeatureName = "ForeignWorker"
)

// Numeric features. Their values are passed through after a range check.
const (
	Duration        FeatureName = "Duration"
	CreditAmount    FeatureName = "CreditAmount"
	InstallmentRate FeatureName = "InstallmentRate"
	ResidenceSince  FeatureName = "ResidenceSince"
	Age             FeatureName = "Age"
	ExistingCredits FeatureName = "ExistingCredits"
	NumPeopleLiable FeatureName = "NumPeopleLiable"
)

// featureSchema is the column order the classifier was trained on.
var featureSchema = [...]FeatureName{
	Status, Duration, CreditHistory, Purpose, CreditAmount, Savings,
	EmploymentSince, InstallmentRate, PersonalStatusSex, DebtorsGuarantors,
	ResidenceSince, Property, Age, OtherInstallmentPlans, Housing,
	ExistingCredits, Job, NumPeopleLiable, Telephone, ForeignWorker,
}

// FeatureSchema returns the ordered list of feature names the model expects.
// Every record must be reindexed to this order before inference.
func FeatureSchema() []FeatureName {
	out := make([]FeatureName, len(featureSchema))
	copy(out, featureSchema[:])
	return out
}

// NumericSpec declares the accepted inclusive range of a numeric feature
// together with the presentation hints used by the form.
type NumericSpec struct {
	Name    FeatureName `json:"name" yaml:"name"`
	Title   string      `json:"title" yaml:"title"`
	Min     int         `json:"min" yaml:"min"`
	Max     int         `json:"max" yaml:"max"`
	Default int         `json:"default" yaml:"default"`
	Step    int         `json:"step" yaml:"step"`
}

// Contains reports whether v lies within [Min, Max].
func (s NumericSpec) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// NumericSpecs returns the numeric feature declarations in form order.
func NumericSpecs() []NumericSpec {
	return []NumericSpec{
		{Name: Duration, Title: "Duration in Month", Min: 4, Max: 72, Default: 24, Step: 1},
		{Name: CreditAmount, Title: "Credit Amount (in DM)", Min: 250, Max: 20000, Default: 2500, Step: 100},
		{Name: InstallmentRate, Title: "Installment Rate in % of Disposable Income", Min: 1, Max: 4, Default: 3, Step: 1},
		{Name: ResidenceSince, Title: "Present Residence Since", Min: 1, Max: 4, Default: 2, Step: 1},
		{Name: Age, Title: "Age in Years", Min: 18, Max: 75, Default: 35, Step: 1},
		{Name: ExistingCredits, Title: "Number of Existing Credits at this Bank", Min: 1, Max: 4, Default: 1, Step: 1},
		{Name: NumPeopleLiable, Title: "Number of People Liable to Provide Maintenance For", Min: 1, Max: 2, Default: 1, Step: 1},
	}
}
