package models

import (
	"time"

	id "medboard/pkg/domain"
)

// RegistrationSession tracks one onboarding attempt through the wizard.
// All mutation goes through the session manager; nothing else may touch
// CurrentStep directly.
type RegistrationSession struct {
	ID             id.SessionID      `json:"id"`
	CurrentStep    Step              `json:"current_step"`
	CompletedSteps map[Step]bool     `json:"completed_steps"`
	Data           RegistrationData  `json:"data"`
	Device         string            `json:"device,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

// NewRegistrationSession allocates a fresh session positioned on the first
// step.
func NewRegistrationSession(device string, now time.Time) *RegistrationSession {
	return &RegistrationSession{
		ID:             id.NewSessionID(),
		CurrentStep:    FirstStep(),
		CompletedSteps: make(map[Step]bool),
		Device:         device,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// IsCompleted reports whether step has been completed at least once.
func (s *RegistrationSession) IsCompleted(step Step) bool {
	return s.CompletedSteps[step]
}

// Complete marks step as completed. Re-completing is a no-op; the completed
// set only grows.
func (s *RegistrationSession) Complete(step Step) {
	if s.CompletedSteps == nil {
		s.CompletedSteps = make(map[Step]bool)
	}
	s.CompletedSteps[step] = true
}

// AllStepsCompleted reports whether every step in the fixed order has been
// completed, the precondition for submission.
func (s *RegistrationSession) AllStepsCompleted() bool {
	for _, step := range StepOrder {
		if !s.CompletedSteps[step] {
			return false
		}
	}
	return true
}

// ExpiredAt reports whether the session has been inactive longer than
// timeout as of now.
func (s *RegistrationSession) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivityAt) > timeout
}

// Touch refreshes the activity timestamp.
func (s *RegistrationSession) Touch(now time.Time) {
	s.LastActivityAt = now
}

// RegistrationData accumulates form fields across steps. It stays sparse
// until each step is completed; partial updates deep-merge into it.
type RegistrationData struct {
	PersonalInfo           PersonalInfo           `json:"personal_info"`
	ProfessionalInfo       ProfessionalInfo       `json:"professional_info"`
	LicenseVerification    LicenseVerification    `json:"license_verification"`
	SpecialtySelection     SpecialtySelection     `json:"specialty_selection"`
	DashboardConfiguration DashboardConfiguration `json:"dashboard_configuration"`
	IdentityVerification   IdentityVerification   `json:"identity_verification"`
	FinalReview            FinalReview            `json:"final_review"`
}

type PersonalInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date,omitempty"`
}

type ProfessionalInfo struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	University     string `json:"university"`
	MedicalBoard   string `json:"medical_board"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// LicenseVerification carries the consumed portion of the license registry
// verdict. The registry itself is an external collaborator.
type LicenseVerification struct {
	Verified          bool      `json:"verified"`
	RegistryName      string    `json:"registry_name,omitempty"`
	RegistrySpecialty string    `json:"registry_specialty,omitempty"`
	Confidence        float64   `json:"confidence,omitempty"`
	CheckedAt         time.Time `json:"checked_at,omitempty"`
}

type SpecialtySelection struct {
	Specialties      []string `json:"specialties"`
	PrimarySpecialty string   `json:"primary_specialty"`
	YearsExperience  int      `json:"years_experience,omitempty"`
}

type DashboardConfiguration struct {
	Modules     []string `json:"modules"`
	DefaultView string   `json:"default_view,omitempty"`
}

// IdentityVerification carries the terminal verdict from the identity
// vendor plus the access level derived from it.
type IdentityVerification struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	AccessLevel string    `json:"access_level,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type FinalReview struct {
	TermsAccepted bool `json:"terms_accepted"`
}
