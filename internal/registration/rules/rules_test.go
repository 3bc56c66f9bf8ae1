package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medboard/internal/registration/models"
)

// validData returns a data set that passes every step's rule; tests knock
// out individual fields from it.
func validData() models.RegistrationData {
	return models.RegistrationData{
		PersonalInfo: models.PersonalInfo{
			FirstName: "Ana",
			LastName:  "Pérez",
			Email:     "ana.perez@example.com",
			Phone:     "+58 414 1234567",
		},
		ProfessionalInfo: models.ProfessionalInfo{
			DocumentType:   "cedula",
			DocumentNumber: "V-1234567",
			University:     "UCV",
			MedicalBoard:   "Colegio de Médicos de Caracas",
		},
		LicenseVerification: models.LicenseVerification{
			Verified:  true,
			CheckedAt: time.Now(),
		},
		SpecialtySelection: models.SpecialtySelection{
			Specialties:      []string{"cardiology", "internal_medicine"},
			PrimarySpecialty: "cardiology",
		},
		DashboardConfiguration: models.DashboardConfiguration{
			Modules:     []string{"appointments", "patients"},
			DefaultView: "appointments",
		},
		IdentityVerification: models.IdentityVerification{
			Status:      "approved",
			AccessLevel: "full",
		},
		FinalReview: models.FinalReview{TermsAccepted: true},
	}
}

func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestTableValidData(t *testing.T) {
	table := NewTable()
	data := validData()
	for _, step := range models.StepOrder {
		assert.Empty(t, table.Validate(step, data), "step %s", step)
	}
}

func TestPersonalInfoRule(t *testing.T) {
	table := NewTable()

	t.Run("empty data reports every field", func(t *testing.T) {
		errs := table.Validate(models.StepPersonalInfo, models.RegistrationData{})
		assert.ElementsMatch(t,
			[]string{"first_name", "last_name", "email", "phone"}, fields(errs))
	})

	t.Run("malformed email", func(t *testing.T) {
		data := validData()
		data.PersonalInfo.Email = "not-an-email"
		assert.Equal(t, []string{"email"}, fields(table.Validate(models.StepPersonalInfo, data)))
	})

	t.Run("phone accepts spaces", func(t *testing.T) {
		data := validData()
		data.PersonalInfo.Phone = "+58 414 123 4567"
		assert.Empty(t, table.Validate(models.StepPersonalInfo, data))
	})

	t.Run("phone rejects letters", func(t *testing.T) {
		data := validData()
		data.PersonalInfo.Phone = "call-me"
		assert.Equal(t, []string{"phone"}, fields(table.Validate(models.StepPersonalInfo, data)))
	})
}

func TestProfessionalInfoRule(t *testing.T) {
	table := NewTable()

	t.Run("accepts V and E prefixes", func(t *testing.T) {
		for _, doc := range []string{"V-1234567", "E-12345", "V-1234567890"} {
			data := validData()
			data.ProfessionalInfo.DocumentNumber = doc
			assert.Empty(t, table.Validate(models.StepProfessionalInfo, data), "doc %s", doc)
		}
	})

	t.Run("rejects malformed document numbers", func(t *testing.T) {
		for _, doc := range []string{"", "1234567", "X-1234567", "V-1234", "V1234567", "V-12345678901"} {
			data := validData()
			data.ProfessionalInfo.DocumentNumber = doc
			assert.Contains(t, fields(table.Validate(models.StepProfessionalInfo, data)),
				"document_number", "doc %q", doc)
		}
	})

	t.Run("requires university and medical board", func(t *testing.T) {
		data := validData()
		data.ProfessionalInfo.University = "  "
		data.ProfessionalInfo.MedicalBoard = ""
		assert.ElementsMatch(t, []string{"university", "medical_board"},
			fields(table.Validate(models.StepProfessionalInfo, data)))
	})
}

func TestLicenseVerificationRule(t *testing.T) {
	table := NewTable()

	data := validData()
	data.LicenseVerification.Verified = false
	assert.Equal(t, []string{"license"}, fields(table.Validate(models.StepLicenseVerification, data)))
}

func TestSpecialtySelectionRule(t *testing.T) {
	table := NewTable()

	t.Run("requires at least one specialty", func(t *testing.T) {
		data := validData()
		data.SpecialtySelection.Specialties = nil
		data.SpecialtySelection.PrimarySpecialty = ""
		assert.ElementsMatch(t, []string{"specialties", "primary_specialty"},
			fields(table.Validate(models.StepSpecialtySelection, data)))
	})

	t.Run("primary must be among selected", func(t *testing.T) {
		data := validData()
		data.SpecialtySelection.PrimarySpecialty = "dermatology"
		assert.Equal(t, []string{"primary_specialty"},
			fields(table.Validate(models.StepSpecialtySelection, data)))
	})
}

func TestDashboardConfigurationRule(t *testing.T) {
	table := NewTable()

	data := validData()
	data.DashboardConfiguration = models.DashboardConfiguration{}
	assert.ElementsMatch(t, []string{"modules", "default_view"},
		fields(table.Validate(models.StepDashboardConfiguration, data)))
}

func TestIdentityVerificationRule(t *testing.T) {
	table := NewTable()

	t.Run("full and limited access pass", func(t *testing.T) {
		for _, level := range []string{"full", "limited"} {
			data := validData()
			data.IdentityVerification.AccessLevel = level
			assert.Empty(t, table.Validate(models.StepIdentityVerification, data))
		}
	})

	t.Run("none and empty fail", func(t *testing.T) {
		for _, level := range []string{"none", ""} {
			data := validData()
			data.IdentityVerification.AccessLevel = level
			assert.Equal(t, []string{"identity"},
				fields(table.Validate(models.StepIdentityVerification, data)))
		}
	})
}

func TestFinalReviewRule(t *testing.T) {
	table := NewTable()

	data := validData()
	data.FinalReview.TermsAccepted = false
	assert.Equal(t, []string{"terms_accepted"}, fields(table.Validate(models.StepFinalReview, data)))
}

func TestUnregisteredStepIsValid(t *testing.T) {
	table := &Table{rules: map[models.Step]Rule{}}
	assert.True(t, table.IsValid(models.StepPersonalInfo, models.RegistrationData{}))
}
