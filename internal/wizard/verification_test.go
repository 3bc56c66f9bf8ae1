package wizard

import (
	"context"
	"time"

	"medboard/internal/audit"
	"medboard/internal/providers"
	"medboard/internal/registration/models"
	vmodels "medboard/internal/verification/models"
	id "medboard/pkg/domain"
	dErrors "medboard/pkg/domain-errors"
)

func (s *ControllerSuite) startWithContact() id.SessionID {
	sessionID := s.start()
	s.update(sessionID, models.RegistrationData{
		PersonalInfo: models.PersonalInfo{
			FirstName: "Ana", LastName: "Pérez",
			Email: "ana.perez@example.com", Phone: "+584141234567",
		},
	})
	return sessionID
}

// =============================================================================
// SendCode
// =============================================================================

func (s *ControllerSuite) TestSendCode() {
	ctx := context.Background()
	sessionID := s.startWithContact()

	s.Run("first send delivers a code", func() {
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.Require().NoError(err)
		s.True(result.Sent)
		s.Equal(1, result.Attempts)
		s.Len(s.sender.last(vmodels.ChannelEmail), 6)
		s.Len(s.audit.ByAction(audit.ActionVerificationSent), 1)
	})

	s.Run("immediate resend hits the cooldown", func() {
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.True(dErrors.Is(err, dErrors.CodeCooldownActive))
		// The rejection reports when the next attempt is allowed, and does
		// not count as an attempt itself.
		s.Equal(1, result.Attempts)
		s.True(result.NextAllowedAt.Equal(s.now.Add(time.Minute)))
	})

	s.Run("resend succeeds once the cooldown lapses", func() {
		s.advance(time.Minute)
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.Require().NoError(err)
		s.True(result.Sent)
		s.Equal(2, result.Attempts)
	})

	s.Run("the second attempt doubles the wait", func() {
		s.advance(time.Minute)
		_, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.True(dErrors.Is(err, dErrors.CodeCooldownActive))

		s.advance(time.Minute)
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.Require().NoError(err)
		s.True(result.Sent)
	})

	s.Run("channels cool down independently", func() {
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelPhone)
		s.Require().NoError(err)
		s.True(result.Sent)
		s.Equal(1, result.Attempts)
	})
}

func (s *ControllerSuite) TestSendCodeWithoutIdentifier() {
	sessionID := s.start()

	_, err := s.controller.SendCode(context.Background(), sessionID, vmodels.ChannelEmail)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ControllerSuite) TestSendCodeDeliveryFailure() {
	ctx := context.Background()
	sessionID := s.startWithContact()
	s.sender.fail = true

	_, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
	s.True(dErrors.Is(err, dErrors.CodeProviderUnavailable))

	s.Run("the failed delivery still counts toward the cooldown", func() {
		s.sender.fail = false
		_, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.True(dErrors.Is(err, dErrors.CodeCooldownActive))

		s.advance(time.Minute)
		result, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.Require().NoError(err)
		s.True(result.Sent)
		s.Equal(2, result.Attempts)
	})
}

// =============================================================================
// ConfirmCode
// =============================================================================

func (s *ControllerSuite) TestConfirmCode() {
	ctx := context.Background()
	sessionID := s.startWithContact()

	s.Run("confirm before any send asks for a new code", func() {
		_, err := s.controller.ConfirmCode(ctx, sessionID, vmodels.ChannelEmail, "123456")
		s.True(dErrors.Is(err, dErrors.CodeVerificationMissing))
	})

	sent, err := s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
	s.Require().NoError(err)
	s.Require().True(sent.Sent)

	s.Run("wrong code is rejected and counted", func() {
		wrong := "000000"
		if s.sender.last(vmodels.ChannelEmail) == wrong {
			wrong = "000001"
		}
		result, err := s.controller.ConfirmCode(ctx, sessionID, vmodels.ChannelEmail, wrong)
		s.Require().NoError(err)
		s.False(result.Verified)

		// The failed guess extended the cooldown, throttling brute force.
		_, err = s.controller.SendCode(ctx, sessionID, vmodels.ChannelEmail)
		s.True(dErrors.Is(err, dErrors.CodeCooldownActive))
	})

	s.Run("right code verifies", func() {
		result, err := s.controller.ConfirmCode(ctx, sessionID, vmodels.ChannelEmail, s.sender.last(vmodels.ChannelEmail))
		s.Require().NoError(err)
		s.True(result.Verified)
		s.Len(s.audit.ByAction(audit.ActionVerificationConfirmed), 1)
	})
}

func (s *ControllerSuite) TestEditedIdentifierInvalidatesVerification() {
	sessionID := s.startWithContact()
	s.verifyChannel(sessionID, vmodels.ChannelEmail)
	s.verifyChannel(sessionID, vmodels.ChannelPhone)

	// Editing the email after verifying it must re-block the contact step.
	s.update(sessionID, models.RegistrationData{
		PersonalInfo: models.PersonalInfo{Email: "other@example.com"},
	})

	result, err := s.controller.GoToNextStep(context.Background(), sessionID)
	s.Require().NoError(err)
	s.False(result.Moved)
	s.Require().Len(result.FieldErrors, 1)
	s.Equal("email", result.FieldErrors[0].Field)
}

// =============================================================================
// CheckLicense
// =============================================================================

func (s *ControllerSuite) TestCheckLicense() {
	ctx := context.Background()
	sessionID := s.start()

	s.Run("requires a document number", func() {
		_, err := s.controller.CheckLicense(ctx, sessionID)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.update(sessionID, models.RegistrationData{
		ProfessionalInfo: models.ProfessionalInfo{DocumentNumber: "V-1234567"},
	})

	s.Run("unknown document yields a not-found verdict", func() {
		result, err := s.controller.CheckLicense(ctx, sessionID)
		s.Require().NoError(err)
		s.False(result.Found)

		snapshot, err := s.controller.State(ctx, sessionID)
		s.Require().NoError(err)
		s.False(snapshot.Session.Data.LicenseVerification.Verified)
	})

	s.Run("repeat check is throttled like a send", func() {
		_, err := s.controller.CheckLicense(ctx, sessionID)
		s.True(dErrors.Is(err, dErrors.CodeCooldownActive))
	})

	s.Run("positive verdict verifies and stores the consumed fields", func() {
		s.registry.SetVerdict("V-1234567", providers.LicenseVerdict{
			Found: true, Name: "Ana Pérez", Specialty: "cardiology", Confidence: 0.97,
		})
		s.advance(time.Minute)

		result, err := s.controller.CheckLicense(ctx, sessionID)
		s.Require().NoError(err)
		s.True(result.Found)
		s.Equal("Ana Pérez", result.Name)

		snapshot, err := s.controller.State(ctx, sessionID)
		s.Require().NoError(err)
		license := snapshot.Session.Data.LicenseVerification
		s.True(license.Verified)
		s.Equal("cardiology", license.RegistrySpecialty)
		s.InDelta(0.97, license.Confidence, 1e-9)
	})
}

func (s *ControllerSuite) TestCheckLicenseRevokedVerdict() {
	ctx := context.Background()
	sessionID := s.start()
	s.completePersonalInfo(sessionID)
	s.completeProfessionalInfo(sessionID)

	s.registry.SetVerdict("V-1234567", providers.LicenseVerdict{
		Found: true, Name: "Ana Pérez", Specialty: "cardiology", Confidence: 0.97,
	})
	result, err := s.controller.CheckLicense(ctx, sessionID)
	s.Require().NoError(err)
	s.Require().True(result.Found)

	// The license is revoked between checks; the document number is
	// unchanged.
	s.registry.SetVerdict("V-1234567", providers.LicenseVerdict{})
	s.advance(2 * time.Minute)

	result, err = s.controller.CheckLicense(ctx, sessionID)
	s.Require().NoError(err)
	s.False(result.Found)

	s.Run("the stored verdict is replaced, not merged over", func() {
		snapshot, err := s.controller.State(ctx, sessionID)
		s.Require().NoError(err)
		license := snapshot.Session.Data.LicenseVerification
		s.False(license.Verified)
		s.Empty(license.RegistryName)
		s.Empty(license.RegistrySpecialty)
		s.Zero(license.Confidence)
	})

	s.Run("the step no longer advances", func() {
		advance, err := s.controller.GoToNextStep(ctx, sessionID)
		s.Require().NoError(err)
		s.False(advance.Moved)
		s.Require().NotEmpty(advance.FieldErrors)
		s.Equal("license", advance.FieldErrors[0].Field)
	})
}

func (s *ControllerSuite) TestCheckLicenseRegistryDown() {
	ctx := context.Background()
	sessionID := s.start()
	s.update(sessionID, models.RegistrationData{
		ProfessionalInfo: models.ProfessionalInfo{DocumentNumber: "V-1234567"},
	})
	s.registry.SetDown(true)

	_, err := s.controller.CheckLicense(ctx, sessionID)
	s.True(dErrors.Is(err, dErrors.CodeProviderUnavailable))

	s.Run("session state is not corrupted by the outage", func() {
		snapshot, err := s.controller.State(ctx, sessionID)
		s.Require().NoError(err)
		s.False(snapshot.Session.Data.LicenseVerification.Verified)
	})

	s.Run("recovery plus cooldown allows a retry", func() {
		s.registry.SetDown(false)
		s.registry.SetVerdict("V-1234567", providers.LicenseVerdict{Found: true})
		s.advance(2 * time.Minute)

		result, err := s.controller.CheckLicense(ctx, sessionID)
		s.Require().NoError(err)
		s.True(result.Found)
	})
}

// =============================================================================
// RefreshIdentityStatus
// =============================================================================

func (s *ControllerSuite) TestRefreshIdentityStatus() {
	ctx := context.Background()
	sessionID := s.start()

	s.Run("requires a reference id", func() {
		_, err := s.controller.RefreshIdentityStatus(ctx, sessionID, "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	tests := []struct {
		status providers.IdentityStatus
		access providers.AccessLevel
	}{
		{providers.IdentityApproved, providers.AccessFull},
		{providers.IdentityInReview, providers.AccessLimited},
		{providers.IdentityDeclined, providers.AccessNone},
		{providers.IdentityExpired, providers.AccessNone},
	}
	for _, tt := range tests {
		s.Run(string(tt.status), func() {
			s.identity.SetStatus("ref-1", tt.status)

			result, err := s.controller.RefreshIdentityStatus(ctx, sessionID, "ref-1")
			s.Require().NoError(err)
			s.Equal(tt.status, result.Status)
			s.Equal(tt.access, result.AccessLevel)

			snapshot, err := s.controller.State(ctx, sessionID)
			s.Require().NoError(err)
			s.Equal(string(tt.access), snapshot.Session.Data.IdentityVerification.AccessLevel)
		})
	}
}

func (s *ControllerSuite) TestRefreshIdentityStatusProviderDown() {
	sessionID := s.start()
	s.identity.SetDown(true)

	_, err := s.controller.RefreshIdentityStatus(context.Background(), sessionID, "ref-1")
	s.True(dErrors.Is(err, dErrors.CodeProviderUnavailable))
}

func (s *ControllerSuite) TestUpdateDataCannotWriteVerdictSections() {
	ctx := context.Background()
	sessionID := s.start()

	// Only CheckLicense and RefreshIdentityStatus may write these sections;
	// a client sending them directly gets them dropped.
	s.update(sessionID, models.RegistrationData{
		LicenseVerification:  models.LicenseVerification{Verified: true, RegistryName: "forged"},
		IdentityVerification: models.IdentityVerification{Status: "approved", AccessLevel: "full"},
	})

	snapshot, err := s.controller.State(ctx, sessionID)
	s.Require().NoError(err)
	s.False(snapshot.Session.Data.LicenseVerification.Verified)
	s.Empty(snapshot.Session.Data.LicenseVerification.RegistryName)
	s.Empty(snapshot.Session.Data.IdentityVerification.AccessLevel)

	for _, view := range snapshot.Steps {
		if view.Step == models.StepIdentityVerification || view.Step == models.StepLicenseVerification {
			s.False(view.Valid, string(view.Step))
		}
	}
}

func (s *ControllerSuite) TestDeclinedIdentityBlocksAdvance() {
	sessionID := s.start()
	s.completePersonalInfo(sessionID)
	s.completeProfessionalInfo(sessionID)
	s.completeLicenseVerification(sessionID)
	s.completeSpecialtySelection(sessionID)
	s.completeDashboardConfiguration(sessionID)

	s.identity.SetStatus("ref-1", providers.IdentityDeclined)
	_, err := s.controller.RefreshIdentityStatus(context.Background(), sessionID, "ref-1")
	s.Require().NoError(err)

	result, err := s.controller.GoToNextStep(context.Background(), sessionID)
	s.Require().NoError(err)
	s.False(result.Moved)
	s.Require().Len(result.FieldErrors, 1)
	s.Equal("identity", result.FieldErrors[0].Field)
}
