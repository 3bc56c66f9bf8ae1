// Package rules holds the per-step validation table. Rules are pure
// predicates over the accumulated registration data; they never mutate
// state and never talk to collaborators. Uniqueness checks against the
// profile store happen in the wizard controller, not here.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"medboard/internal/registration/models"
)

// FieldError is one inline, user-facing validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Rule validates one step against the data accumulated so far.
type Rule func(data models.RegistrationData) []FieldError

// Table maps each step to its rule. Steps without a registered rule are
// considered valid, matching the behavior of purely informational steps.
type Table struct {
	rules map[models.Step]Rule
}

// NewTable returns the default rule table for the doctor wizard.
func NewTable() *Table {
	t := &Table{rules: make(map[models.Step]Rule)}
	t.Register(models.StepPersonalInfo, personalInfoRule)
	t.Register(models.StepProfessionalInfo, professionalInfoRule)
	t.Register(models.StepLicenseVerification, licenseVerificationRule)
	t.Register(models.StepSpecialtySelection, specialtySelectionRule)
	t.Register(models.StepDashboardConfiguration, dashboardConfigurationRule)
	t.Register(models.StepIdentityVerification, identityVerificationRule)
	t.Register(models.StepFinalReview, finalReviewRule)
	return t
}

// Register installs or replaces the rule for a step.
func (t *Table) Register(step models.Step, rule Rule) {
	t.rules[step] = rule
}

// Validate runs the rule for step and returns field-level errors, nil when
// valid or when no rule is registered.
func (t *Table) Validate(step models.Step, data models.RegistrationData) []FieldError {
	rule, ok := t.rules[step]
	if !ok {
		return nil
	}
	return rule(data)
}

// IsValid reports whether step passes its rule.
func (t *Table) IsValid(step models.Step, data models.RegistrationData) bool {
	return len(t.Validate(step, data)) == 0
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// Venezuelan cedula / foreign-resident document formats: a V or E
	// prefix, a dash, then 5 to 10 digits.
	documentPattern = regexp.MustCompile(`^[VE]-\d{5,10}$`)
	phonePattern    = regexp.MustCompile(`^\+?\d{7,15}$`)
)

func personalInfoRule(data models.RegistrationData) []FieldError {
	var errs []FieldError
	p := data.PersonalInfo
	if strings.TrimSpace(p.FirstName) == "" {
		errs = append(errs, FieldError{Field: "first_name", Message: "first name is required"})
	}
	if strings.TrimSpace(p.LastName) == "" {
		errs = append(errs, FieldError{Field: "last_name", Message: "last name is required"})
	}
	if !emailPattern.MatchString(p.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if !phonePattern.MatchString(strings.ReplaceAll(p.Phone, " ", "")) {
		errs = append(errs, FieldError{Field: "phone", Message: "a valid phone number is required"})
	}
	return errs
}

func professionalInfoRule(data models.RegistrationData) []FieldError {
	var errs []FieldError
	p := data.ProfessionalInfo
	if p.DocumentType == "" {
		errs = append(errs, FieldError{Field: "document_type", Message: "document type is required"})
	}
	if !documentPattern.MatchString(p.DocumentNumber) {
		errs = append(errs, FieldError{Field: "document_number", Message: "document number must look like V-1234567"})
	}
	if strings.TrimSpace(p.University) == "" {
		errs = append(errs, FieldError{Field: "university", Message: "university is required"})
	}
	if strings.TrimSpace(p.MedicalBoard) == "" {
		errs = append(errs, FieldError{Field: "medical_board", Message: "medical board is required"})
	}
	return errs
}

func licenseVerificationRule(data models.RegistrationData) []FieldError {
	if !data.LicenseVerification.Verified {
		return []FieldError{{Field: "license", Message: "license has not been verified against the registry"}}
	}
	return nil
}

func specialtySelectionRule(data models.RegistrationData) []FieldError {
	var errs []FieldError
	sel := data.SpecialtySelection
	if len(sel.Specialties) == 0 {
		errs = append(errs, FieldError{Field: "specialties", Message: "select at least one specialty"})
	}
	if sel.PrimarySpecialty == "" {
		errs = append(errs, FieldError{Field: "primary_specialty", Message: "primary specialty is required"})
	} else {
		found := false
		for _, s := range sel.Specialties {
			if s == sel.PrimarySpecialty {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, FieldError{Field: "primary_specialty", Message: "primary specialty must be one of the selected specialties"})
		}
	}
	return errs
}

func dashboardConfigurationRule(data models.RegistrationData) []FieldError {
	var errs []FieldError
	cfg := data.DashboardConfiguration
	if len(cfg.Modules) == 0 {
		errs = append(errs, FieldError{Field: "modules", Message: "select at least one dashboard module"})
	}
	if cfg.DefaultView == "" {
		errs = append(errs, FieldError{Field: "default_view", Message: "default view is required"})
	}
	return errs
}

func identityVerificationRule(data models.RegistrationData) []FieldError {
	switch data.IdentityVerification.AccessLevel {
	case "full", "limited":
		return nil
	}
	return []FieldError{{Field: "identity", Message: "identity verification has not been approved"}}
}

func finalReviewRule(data models.RegistrationData) []FieldError {
	if !data.FinalReview.TermsAccepted {
		return []FieldError{{Field: "terms_accepted", Message: "terms must be accepted before submission"}}
	}
	return nil
}
