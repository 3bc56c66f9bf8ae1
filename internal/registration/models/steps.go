package models

// Step is one named stage of the registration wizard. The order below is a
// contract with the UI layer and the profile store submission endpoint; do
// not reorder without coordinating both.
type Step string

const (
	StepPersonalInfo           Step = "personal_info"
	StepProfessionalInfo       Step = "professional_info"
	StepLicenseVerification    Step = "license_verification"
	StepSpecialtySelection     Step = "specialty_selection"
	StepDashboardConfiguration Step = "dashboard_configuration"
	StepIdentityVerification   Step = "identity_verification"
	StepFinalReview            Step = "final_review"
)

// StepOrder is the fixed linear order of the wizard.
var StepOrder = []Step{
	StepPersonalInfo,
	StepProfessionalInfo,
	StepLicenseVerification,
	StepSpecialtySelection,
	StepDashboardConfiguration,
	StepIdentityVerification,
	StepFinalReview,
}

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(StepOrder))
	for i, s := range StepOrder {
		m[s] = i
	}
	return m
}()

// TotalSteps is the number of wizard stages.
func TotalSteps() int {
	return len(StepOrder)
}

// FirstStep returns the wizard entry step.
func FirstStep() Step {
	return StepOrder[0]
}

// FinalStep returns the terminal review step.
func FinalStep() Step {
	return StepOrder[len(StepOrder)-1]
}

// StepIndex returns the position of step in the fixed order, or -1 when the
// step is not part of the enumeration.
func StepIndex(step Step) int {
	if i, ok := stepIndex[step]; ok {
		return i
	}
	return -1
}

// IsStep reports whether step is a member of the fixed enumeration.
func IsStep(step Step) bool {
	_, ok := stepIndex[step]
	return ok
}

// NextStep returns the step immediately following step. ok is false on the
// final step or an unknown step.
func NextStep(step Step) (next Step, ok bool) {
	i := StepIndex(step)
	if i < 0 || i+1 >= len(StepOrder) {
		return "", false
	}
	return StepOrder[i+1], true
}

// PreviousStep returns the step immediately preceding step. ok is false on
// the first step or an unknown step.
func PreviousStep(step Step) (prev Step, ok bool) {
	i := StepIndex(step)
	if i <= 0 {
		return "", false
	}
	return StepOrder[i-1], true
}

// StepStatus is the UI-facing state of a single step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
)
