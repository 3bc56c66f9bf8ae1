package wizard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"medboard/internal/audit"
	"medboard/internal/providers"
	"medboard/internal/registration/models"
	"medboard/internal/verification/code"
	"medboard/internal/verification/cooldown"
	vmodels "medboard/internal/verification/models"
	"medboard/internal/verification/tracker"
	id "medboard/pkg/domain"
	dErrors "medboard/pkg/domain-errors"
)

// CodeSender delivers a verification code over a channel. Delivery itself
// (SMTP, SMS gateway) is an external concern.
type CodeSender interface {
	Send(ctx context.Context, channel vmodels.Channel, identifier, plaintext string) error
}

// LogSender logs codes instead of delivering them, for development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, channel vmodels.Channel, identifier, plaintext string) error {
	s.Logger.Info("verification code (dev sender)",
		"channel", channel, "identifier", identifier, "code", plaintext)
	return nil
}

// SendResult reports the outcome of a code send.
type SendResult struct {
	Sent          bool      `json:"sent"`
	Attempts      int       `json:"attempts"`
	NextAllowedAt time.Time `json:"next_allowed_at"`
}

// SendCode starts (or restarts, after an identifier edit) the verification
// flow for a channel and sends a fresh code. The cooldown policy is
// consulted here, before the tracker records anything: an active cooldown
// returns CodeCooldownActive with the countdown, and no attempt is
// recorded.
func (c *Controller) SendCode(ctx context.Context, sessionID id.SessionID, channel vmodels.Channel) (SendResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.SendCode")
	defer span.End()

	t, err := c.trackerFor(channel)
	if err != nil {
		return SendResult{}, err
	}
	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return SendResult{}, err
	}
	identifier := c.identifierFor(channel, sess)
	if identifier == "" {
		return SendResult{}, dErrors.New(dErrors.CodeValidation, "fill in the "+string(channel)+" field first")
	}

	record, err := t.Record(ctx, identifier)
	if errors.Is(err, tracker.ErrNoActiveVerification) {
		// First send for this identifier. An earlier record for a
		// different identifier is left untouched; it simply ages out.
		if err := t.Start(ctx, identifier); err != nil {
			return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to start verification", err)
		}
		record, err = t.Record(ctx, identifier)
	}
	if err != nil {
		return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load verification record", err)
	}

	var lastAttempt time.Time
	if record.LastAttemptAt != nil {
		lastAttempt = *record.LastAttemptAt
	}
	if remaining := cooldown.Remaining(record.Attempts, lastAttempt, c.now()); remaining > 0 {
		c.metrics.CooldownRejections.WithLabelValues(string(channel)).Inc()
		return SendResult{
				Attempts:      record.Attempts,
				NextAllowedAt: cooldown.NextAllowedAttemptAt(record.Attempts, lastAttempt),
			}, dErrors.New(dErrors.CodeCooldownActive,
				"wait "+remaining.Round(time.Second).String()+" before requesting another code")
	}

	plaintext, err := code.Generate()
	if err != nil {
		return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to generate code", err)
	}
	hash, err := code.Hash(plaintext)
	if err != nil {
		return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to hash code", err)
	}

	if err := t.RecordAttempt(ctx, identifier, hash); err != nil {
		return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to record attempt", err)
	}
	c.metrics.VerificationAttempts.WithLabelValues(string(channel)).Inc()

	if err := c.sender.Send(ctx, channel, identifier, plaintext); err != nil {
		// The attempt stays recorded: the channel was exercised even if
		// delivery failed, and the cooldown should still apply.
		c.metrics.ProviderFailures.WithLabelValues("code_sender").Inc()
		return SendResult{}, dErrors.Wrap(dErrors.CodeProviderUnavailable, "failed to send code", err)
	}

	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionVerificationSent,
		SessionID: sessionID.String(),
		Channel:   string(channel),
		At:        c.now(),
	})

	record, err = t.Record(ctx, identifier)
	if err != nil {
		return SendResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to reload verification record", err)
	}
	var next time.Time
	if record.LastAttemptAt != nil {
		next = cooldown.NextAllowedAttemptAt(record.Attempts, *record.LastAttemptAt)
	}
	return SendResult{Sent: true, Attempts: record.Attempts, NextAllowedAt: next}, nil
}

// ConfirmResult reports the outcome of a code confirmation.
type ConfirmResult struct {
	Verified bool `json:"verified"`
}

// ConfirmCode checks a submitted code against the last sent one and marks
// the channel verified on a match. A missing or raced-out record returns
// CodeVerificationMissing, which the UI renders as "please request a new
// code".
func (c *Controller) ConfirmCode(ctx context.Context, sessionID id.SessionID, channel vmodels.Channel, submitted string) (ConfirmResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.ConfirmCode")
	defer span.End()

	t, err := c.trackerFor(channel)
	if err != nil {
		return ConfirmResult{}, err
	}
	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}
	identifier := c.identifierFor(channel, sess)

	record, err := t.Record(ctx, identifier)
	if errors.Is(err, tracker.ErrNoActiveVerification) {
		return ConfirmResult{}, dErrors.New(dErrors.CodeVerificationMissing, "please request a new code")
	}
	if err != nil {
		return ConfirmResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load verification record", err)
	}
	if len(record.LastPayload) == 0 {
		return ConfirmResult{}, dErrors.New(dErrors.CodeVerificationMissing, "please request a new code")
	}

	if !code.Matches(record.LastPayload, submitted) {
		// Failed confirms count as attempts so guessing is throttled by
		// the same cooldown as sends.
		if err := t.RecordAttempt(ctx, identifier, nil); err != nil {
			c.logger.Warn("failed to record confirm attempt", "channel", channel, "error", err)
		}
		c.metrics.VerificationAttempts.WithLabelValues(string(channel)).Inc()
		return ConfirmResult{}, nil
	}

	if err := t.MarkVerified(ctx, identifier); err != nil {
		if errors.Is(err, tracker.ErrNoActiveVerification) {
			return ConfirmResult{}, dErrors.New(dErrors.CodeVerificationMissing, "please request a new code")
		}
		return ConfirmResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to mark verified", err)
	}

	c.metrics.VerificationConfirmed.WithLabelValues(string(channel)).Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionVerificationConfirmed,
		SessionID: sessionID.String(),
		Channel:   string(channel),
		At:        c.now(),
	})
	return ConfirmResult{Verified: true}, nil
}

// LicenseCheckResult reports the consumed registry verdict.
type LicenseCheckResult struct {
	Found      bool    `json:"found"`
	Name       string  `json:"name,omitempty"`
	Specialty  string  `json:"specialty,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CheckLicense runs the document channel: it consults the license registry
// for the session's document number, records the attempt (the registry is
// rate-limited like any other send channel) and, on a positive verdict,
// marks the document verified and stores the consumed verdict fields in the
// session data. Registry failure is surfaced with a retry affordance and
// leaves the step incomplete; it never corrupts session state.
func (c *Controller) CheckLicense(ctx context.Context, sessionID id.SessionID) (LicenseCheckResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.CheckLicense")
	defer span.End()

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return LicenseCheckResult{}, err
	}
	documentNumber := sess.Data.ProfessionalInfo.DocumentNumber
	if documentNumber == "" {
		return LicenseCheckResult{}, dErrors.New(dErrors.CodeValidation, "fill in the document number first")
	}

	record, err := c.document.Record(ctx, documentNumber)
	if errors.Is(err, tracker.ErrNoActiveVerification) {
		if err := c.document.Start(ctx, documentNumber); err != nil {
			return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to start verification", err)
		}
		record, err = c.document.Record(ctx, documentNumber)
	}
	if err != nil {
		return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load verification record", err)
	}

	var lastAttempt time.Time
	if record.LastAttemptAt != nil {
		lastAttempt = *record.LastAttemptAt
	}
	if remaining := cooldown.Remaining(record.Attempts, lastAttempt, c.now()); remaining > 0 {
		c.metrics.CooldownRejections.WithLabelValues(string(vmodels.ChannelDocument)).Inc()
		return LicenseCheckResult{}, dErrors.New(dErrors.CodeCooldownActive,
			"wait "+remaining.Round(time.Second).String()+" before checking again")
	}

	if err := c.document.RecordAttempt(ctx, documentNumber, nil); err != nil {
		return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to record attempt", err)
	}
	c.metrics.VerificationAttempts.WithLabelValues(string(vmodels.ChannelDocument)).Inc()

	verdict, err := c.registry.Lookup(ctx, documentNumber)
	if err != nil {
		c.metrics.ProviderFailures.WithLabelValues("license_registry").Inc()
		return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeProviderUnavailable, "license registry is unavailable", err)
	}

	// The verdict replaces the section wholesale: a not-found verdict must
	// clear an earlier positive one, a merge would let it survive.
	stored := models.LicenseVerification{
		Verified:          verdict.Found,
		RegistryName:      verdict.Name,
		RegistrySpecialty: verdict.Specialty,
		Confidence:        verdict.Confidence,
		CheckedAt:         c.now(),
	}
	if _, err := c.sessions.SetLicenseVerification(ctx, sessionID, stored); err != nil {
		return LicenseCheckResult{}, c.sessionError(err)
	}

	if verdict.Found {
		if err := c.document.MarkVerified(ctx, documentNumber); err != nil {
			return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to mark document verified", err)
		}
		c.metrics.VerificationConfirmed.WithLabelValues(string(vmodels.ChannelDocument)).Inc()
		c.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionVerificationConfirmed,
			SessionID: sessionID.String(),
			Channel:   string(vmodels.ChannelDocument),
			At:        c.now(),
		})
	} else if err := c.document.ClearVerified(ctx, documentNumber); err != nil {
		// A license revoked between checks must also stop passing the
		// document gate, not just the stored verdict.
		return LicenseCheckResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to clear document verification", err)
	}

	return LicenseCheckResult{
		Found:      verdict.Found,
		Name:       verdict.Name,
		Specialty:  verdict.Specialty,
		Confidence: verdict.Confidence,
	}, nil
}

// IdentityResult reports the vendor verdict and derived access level.
type IdentityResult struct {
	Status      providers.IdentityStatus `json:"status"`
	AccessLevel providers.AccessLevel    `json:"access_level"`
}

// RefreshIdentityStatus pulls the vendor's current verdict for a reference
// id and stores the derived access level. Approved and in-review verdicts
// let the identity step complete; declined and expired do not.
func (c *Controller) RefreshIdentityStatus(ctx context.Context, sessionID id.SessionID, referenceID string) (IdentityResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.RefreshIdentityStatus")
	defer span.End()

	if referenceID == "" {
		return IdentityResult{}, dErrors.New(dErrors.CodeBadRequest, "reference id is required")
	}
	if _, err := c.loadSession(ctx, sessionID); err != nil {
		return IdentityResult{}, err
	}

	status, err := c.identity.Status(ctx, referenceID)
	if err != nil {
		c.metrics.ProviderFailures.WithLabelValues("identity_provider").Inc()
		return IdentityResult{}, dErrors.Wrap(dErrors.CodeProviderUnavailable, "identity provider is unavailable", err)
	}

	access := providers.AccessFor(status)
	stored := models.IdentityVerification{
		ReferenceID: referenceID,
		Status:      string(status),
		AccessLevel: string(access),
		UpdatedAt:   c.now(),
	}
	if _, err := c.sessions.SetIdentityVerification(ctx, sessionID, stored); err != nil {
		return IdentityResult{}, c.sessionError(err)
	}
	return IdentityResult{Status: status, AccessLevel: access}, nil
}

func (c *Controller) trackerFor(channel vmodels.Channel) (*tracker.Tracker, error) {
	switch channel {
	case vmodels.ChannelEmail:
		return c.email, nil
	case vmodels.ChannelPhone:
		return c.phone, nil
	case vmodels.ChannelDocument:
		return c.document, nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
	}
}

func (c *Controller) identifierFor(channel vmodels.Channel, sess *models.RegistrationSession) string {
	switch channel {
	case vmodels.ChannelEmail:
		return sess.Data.PersonalInfo.Email
	case vmodels.ChannelPhone:
		return sess.Data.PersonalInfo.Phone
	case vmodels.ChannelDocument:
		return sess.Data.ProfessionalInfo.DocumentNumber
	default:
		return ""
	}
}
