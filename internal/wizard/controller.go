// Package wizard is the top-level coordinator invoked by the UI layer. It
// moves sessions between steps through the navigation rules, persists data
// through the session manager, and gates the contact and identity steps on
// the verification trackers.
//
// Every collaborator is constructed explicitly and injected; there are no
// package-level singletons, so tests instantiate isolated controllers per
// case.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"medboard/internal/audit"
	"medboard/internal/platform/metrics"
	"medboard/internal/profile"
	"medboard/internal/providers"
	"medboard/internal/registration/models"
	"medboard/internal/registration/navigation"
	"medboard/internal/registration/resume"
	"medboard/internal/registration/rules"
	"medboard/internal/registration/session"
	"medboard/internal/verification/tracker"
	id "medboard/pkg/domain"
	dErrors "medboard/pkg/domain-errors"
	"medboard/pkg/platform/sentinel"
)

// Controller coordinates the wizard. One instance serves all sessions.
type Controller struct {
	sessions *session.Manager
	email    *tracker.Tracker
	phone    *tracker.Tracker
	document *tracker.Tracker
	registry providers.LicenseRegistry
	identity providers.IdentityProvider
	profiles profile.Store
	sender   CodeSender
	tokens   *resume.Issuer
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	handlers *stepRegistry
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Sessions *session.Manager
	Email    *tracker.Tracker
	Phone    *tracker.Tracker
	Document *tracker.Tracker
	Registry providers.LicenseRegistry
	Identity providers.IdentityProvider
	Profiles profile.Store
	Sender   CodeSender
	Tokens   *resume.Issuer
	Audit    audit.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New wires a controller from its collaborators.
func New(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		sessions: deps.Sessions,
		email:    deps.Email,
		phone:    deps.Phone,
		document: deps.Document,
		registry: deps.Registry,
		identity: deps.Identity,
		profiles: deps.Profiles,
		sender:   deps.Sender,
		tokens:   deps.Tokens,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   otel.Tracer("medboard/wizard"),
		now:      time.Now,
		handlers: newStepRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartResult is returned when a session is created or re-created.
type StartResult struct {
	Session     *models.RegistrationSession
	ResumeToken string
}

// Start allocates a fresh registration session. Any prior session the
// client still references is simply abandoned; its store entry ages out.
func (c *Controller) Start(ctx context.Context, device string) (StartResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.Start")
	defer span.End()

	sess, err := c.sessions.Create(ctx, device)
	if err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create session", err)
	}

	token, err := c.tokens.Issue(sess.ID)
	if err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to issue resume token", err)
	}

	c.metrics.SessionsCreated.Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionSessionCreated,
		SessionID: sess.ID.String(),
		At:        c.now(),
	})
	return StartResult{Session: sess, ResumeToken: token}, nil
}

// Resume picks a session back up from a resume token. A live session is
// returned as-is. An expired session is replaced by a fresh one seeded with
// the expired session's data, so the user keeps everything they typed but
// re-walks the gates; completed steps do not carry over.
func (c *Controller) Resume(ctx context.Context, token string) (StartResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.Resume")
	defer span.End()

	sessionID, err := c.tokens.Validate(token)
	if err != nil {
		return StartResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid resume token")
	}

	sess, err := c.sessions.Current(ctx, sessionID)
	switch {
	case err == nil:
		return StartResult{Session: sess, ResumeToken: token}, nil
	case errors.Is(err, sentinel.ErrExpired):
		c.metrics.SessionsExpired.Inc()
		c.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionSessionExpired,
			SessionID: sessionID.String(),
			At:        c.now(),
		})
		return c.resumeFromExpired(ctx, sess)
	case errors.Is(err, sentinel.ErrNotFound):
		return StartResult{}, dErrors.New(dErrors.CodeNotFound, "session not found")
	default:
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load session", err)
	}
}

func (c *Controller) resumeFromExpired(ctx context.Context, expired *models.RegistrationSession) (StartResult, error) {
	fresh, err := c.sessions.Create(ctx, expired.Device)
	if err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to re-create session", err)
	}
	if _, err := c.sessions.UpdateData(ctx, fresh.ID, expired.Data); err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to seed session data", err)
	}

	seeded, err := c.sessions.Current(ctx, fresh.ID)
	if err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to reload session", err)
	}
	token, err := c.tokens.Issue(seeded.ID)
	if err != nil {
		return StartResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to issue resume token", err)
	}
	c.metrics.SessionsCreated.Inc()
	return StartResult{Session: seeded, ResumeToken: token}, nil
}

// StepView is the UI-facing state of one step.
type StepView struct {
	Step      models.Step       `json:"step"`
	Status    models.StepStatus `json:"status"`
	Reachable bool              `json:"reachable"`
	Valid     bool              `json:"valid"`
}

// Snapshot is everything the UI needs to render the wizard.
type Snapshot struct {
	Session  *models.RegistrationSession `json:"session"`
	Steps    []StepView                  `json:"steps"`
	Progress float64                     `json:"progress"`
}

// State assembles a snapshot for the UI.
func (c *Controller) State(ctx context.Context, sessionID id.SessionID) (Snapshot, error) {
	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	steps := make([]StepView, 0, models.TotalSteps())
	for _, step := range models.StepOrder {
		steps = append(steps, StepView{
			Step:      step,
			Status:    navigation.Status(sess, step),
			Reachable: navigation.Reachable(sess, step),
			Valid:     c.sessions.Rules().IsValid(step, sess.Data),
		})
	}
	return Snapshot{Session: sess, Steps: steps, Progress: navigation.Progress(sess)}, nil
}

// UpdateData merges a partial data update into the session. The verdict
// sections are server-owned: only CheckLicense and RefreshIdentityStatus
// write them, so whatever a client sends there is discarded before the
// merge.
func (c *Controller) UpdateData(ctx context.Context, sessionID id.SessionID, partial models.RegistrationData) (*models.RegistrationSession, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.UpdateData")
	defer span.End()

	partial.LicenseVerification = models.LicenseVerification{}
	partial.IdentityVerification = models.IdentityVerification{}

	sess, err := c.sessions.UpdateData(ctx, sessionID, partial)
	if err != nil {
		return nil, c.sessionError(err)
	}
	return sess, nil
}

// AdvanceResult describes the outcome of a forward navigation attempt.
type AdvanceResult struct {
	Moved       bool               `json:"moved"`
	CurrentStep models.Step        `json:"current_step"`
	FieldErrors []rules.FieldError `json:"field_errors,omitempty"`
	Reason      string             `json:"reason,omitempty"`
}

// GoToNextStep validates the current step, completes it and advances to the
// step that follows. A duplicate dispatch (double-click on "next") finds the
// new current step's validation unsatisfied or the step already completed,
// and changes nothing further.
func (c *Controller) GoToNextStep(ctx context.Context, sessionID id.SessionID) (AdvanceResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.GoToNextStep")
	defer span.End()

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	current := sess.CurrentStep

	next, ok := models.NextStep(current)
	if !ok {
		return AdvanceResult{CurrentStep: current, Reason: "final step; submit the registration instead"}, nil
	}

	if fieldErrs := c.sessions.Rules().Validate(current, sess.Data); len(fieldErrs) > 0 {
		c.metrics.StepValidationFailures.WithLabelValues(string(current)).Inc()
		return AdvanceResult{CurrentStep: current, FieldErrors: fieldErrs, Reason: "validation failed"}, nil
	}

	if result, blocked, err := c.checkStepGates(ctx, sess); err != nil {
		return AdvanceResult{}, err
	} else if blocked {
		return result, nil
	}

	if handler, ok := c.handlers.get(current); ok {
		if !handler.IsValid(ctx) {
			c.metrics.StepValidationFailures.WithLabelValues(string(current)).Inc()
			return AdvanceResult{CurrentStep: current, Reason: "step handler rejected advance"}, nil
		}
		if err := handler.HandleNext(ctx); err != nil {
			return AdvanceResult{}, dErrors.Wrap(dErrors.CodeInternal, "step handler failed", err)
		}
	}

	if err := c.sessions.CompleteStep(ctx, sessionID, current); err != nil {
		return AdvanceResult{}, c.sessionError(err)
	}
	moved, err := c.sessions.NavigateToStep(ctx, sessionID, next)
	if err != nil {
		return AdvanceResult{}, c.sessionError(err)
	}
	if !moved {
		// Unreachable with a just-completed current step; surface as a bug.
		return AdvanceResult{}, dErrors.New(dErrors.CodeInvariantViolation, "next step unreachable after completion")
	}

	c.metrics.StepsCompleted.WithLabelValues(string(current)).Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionStepCompleted,
		SessionID: sessionID.String(),
		Step:      string(current),
		At:        c.now(),
	})
	c.extendContactVerifications(ctx, sess)

	return AdvanceResult{Moved: true, CurrentStep: next}, nil
}

// GoToPreviousStep retreats one step. Backward navigation bypasses
// validation entirely and never discards data entered for steps ahead of
// the new current step.
func (c *Controller) GoToPreviousStep(ctx context.Context, sessionID id.SessionID) (AdvanceResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.GoToPreviousStep")
	defer span.End()

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}

	prev, ok := models.PreviousStep(sess.CurrentStep)
	if !ok {
		return AdvanceResult{CurrentStep: sess.CurrentStep, Reason: "already on the first step"}, nil
	}

	if handler, hok := c.handlers.get(sess.CurrentStep); hok {
		if err := handler.HandlePrevious(ctx); err != nil {
			c.logger.Warn("step handler previous hook failed",
				"step", sess.CurrentStep, "error", err)
		}
	}

	moved, err := c.sessions.NavigateToStep(ctx, sessionID, prev)
	if err != nil {
		return AdvanceResult{}, c.sessionError(err)
	}
	return AdvanceResult{Moved: moved, CurrentStep: prev}, nil
}

// JumpToStep navigates directly to a step within the reachable frontier.
// Unreachable targets leave the session untouched.
func (c *Controller) JumpToStep(ctx context.Context, sessionID id.SessionID, step models.Step) (AdvanceResult, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.JumpToStep")
	defer span.End()

	if !models.IsStep(step) {
		return AdvanceResult{}, dErrors.New(dErrors.CodeBadRequest, "unknown step")
	}

	moved, err := c.sessions.NavigateToStep(ctx, sessionID, step)
	if err != nil {
		return AdvanceResult{}, c.sessionError(err)
	}

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	result := AdvanceResult{Moved: moved, CurrentStep: sess.CurrentStep}
	if !moved {
		result.Reason = "step is beyond the completed frontier"
	}
	return result, nil
}

// Submit hands the finished registration to the profile store. Every step
// must be completed. On success the session and its verification records
// are destroyed.
func (c *Controller) Submit(ctx context.Context, sessionID id.SessionID) (id.ProfileID, error) {
	ctx, span := c.tracer.Start(ctx, "wizard.Submit")
	defer span.End()

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return id.ProfileID{}, err
	}

	// There is no step after the final review to advance to, so it enters
	// the completed set here, as part of submission. Sessions not yet on
	// the final step fall through to the all-steps check below.
	completedFinalNow := false
	if sess.CurrentStep == models.FinalStep() && !sess.IsCompleted(models.FinalStep()) {
		if err := c.sessions.CompleteStep(ctx, sessionID, models.FinalStep()); err != nil {
			if errors.Is(err, session.ErrStepInvalid) {
				return id.ProfileID{}, dErrors.New(dErrors.CodeValidation, "terms must be accepted before submission")
			}
			return id.ProfileID{}, c.sessionError(err)
		}
		completedFinalNow = true
	}
	if completedFinalNow {
		c.metrics.StepsCompleted.WithLabelValues(string(models.FinalStep())).Inc()
		c.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionStepCompleted,
			SessionID: sessionID.String(),
			Step:      string(models.FinalStep()),
			At:        c.now(),
		})
	}

	sess, err = c.loadSession(ctx, sessionID)
	if err != nil {
		return id.ProfileID{}, err
	}
	if !sess.AllStepsCompleted() {
		return id.ProfileID{}, dErrors.New(dErrors.CodeValidation, "all steps must be completed before submission")
	}

	profileID, err := c.profiles.SubmitRegistration(ctx, sess.Data)
	if err != nil {
		c.metrics.ProviderFailures.WithLabelValues("profile_store").Inc()
		return id.ProfileID{}, dErrors.Wrap(dErrors.CodeProviderUnavailable, "profile store rejected the submission", err)
	}

	c.metrics.RegistrationsSubmitted.Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationSubmitted,
		SessionID: sessionID.String(),
		At:        c.now(),
		Meta:      map[string]string{"profile_id": profileID.String()},
	})

	c.discardVerifications(ctx, sess)
	if err := c.sessions.Reset(ctx, sessionID); err != nil {
		c.logger.Warn("failed to destroy session after submit", "session_id", sessionID, "error", err)
	}
	return profileID, nil
}

// Reset destroys the session and its verification records.
func (c *Controller) Reset(ctx context.Context, sessionID id.SessionID) error {
	ctx, span := c.tracer.Start(ctx, "wizard.Reset")
	defer span.End()

	sess, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	c.discardVerifications(ctx, sess)
	if err := c.sessions.Reset(ctx, sessionID); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to reset session", err)
	}
	c.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionSessionReset,
		SessionID: sessionID.String(),
		At:        c.now(),
	})
	return nil
}

// checkStepGates enforces the verification-channel gates on top of the
// rule table: the contact step needs both contact channels verified, and
// the license step needs a live document verification.
func (c *Controller) checkStepGates(ctx context.Context, sess *models.RegistrationSession) (AdvanceResult, bool, error) {
	switch sess.CurrentStep {
	case models.StepPersonalInfo:
		var pending []string
		for _, t := range []*tracker.Tracker{c.email, c.phone} {
			verified, err := t.IsVerified(ctx, c.identifierFor(t.Channel(), sess))
			if err != nil {
				return AdvanceResult{}, false, dErrors.Wrap(dErrors.CodeInternal, "verification lookup failed", err)
			}
			if !verified {
				pending = append(pending, string(t.Channel()))
			}
		}
		if len(pending) > 0 {
			var fieldErrs []rules.FieldError
			for _, ch := range pending {
				fieldErrs = append(fieldErrs, rules.FieldError{Field: ch, Message: ch + " must be verified"})
			}
			return AdvanceResult{CurrentStep: sess.CurrentStep, FieldErrors: fieldErrs, Reason: "verification required"}, true, nil
		}

	case models.StepProfessionalInfo:
		available, err := c.profiles.CheckAvailability(ctx, "document_number", sess.Data.ProfessionalInfo.DocumentNumber)
		if err != nil {
			c.metrics.ProviderFailures.WithLabelValues("profile_store").Inc()
			return AdvanceResult{}, false, dErrors.Wrap(dErrors.CodeProviderUnavailable, "availability check failed", err)
		}
		if !available {
			return AdvanceResult{
				CurrentStep: sess.CurrentStep,
				FieldErrors: []rules.FieldError{{Field: "document_number", Message: "document number is already registered"}},
				Reason:      "validation failed",
			}, true, nil
		}

	case models.StepLicenseVerification:
		verified, err := c.document.IsVerified(ctx, sess.Data.ProfessionalInfo.DocumentNumber)
		if err != nil {
			return AdvanceResult{}, false, dErrors.Wrap(dErrors.CodeInternal, "verification lookup failed", err)
		}
		if !verified {
			return AdvanceResult{
				CurrentStep: sess.CurrentStep,
				FieldErrors: []rules.FieldError{{Field: "license", Message: "license verification has expired; run the check again"}},
				Reason:      "verification required",
			}, true, nil
		}
	}
	return AdvanceResult{}, false, nil
}

// extendContactVerifications refreshes verified contact channels so a slow
// walk through later steps doesn't silently expire them mid-flow.
func (c *Controller) extendContactVerifications(ctx context.Context, sess *models.RegistrationSession) {
	for _, t := range []*tracker.Tracker{c.email, c.phone} {
		identifier := c.identifierFor(t.Channel(), sess)
		if identifier == "" {
			continue
		}
		if verified, err := t.HasActiveSession(ctx, identifier); err == nil && verified {
			if err := t.ExtendSession(ctx, identifier); err != nil {
				c.logger.Warn("failed to extend verification session",
					"channel", t.Channel(), "error", err)
			}
		}
	}
}

func (c *Controller) discardVerifications(ctx context.Context, sess *models.RegistrationSession) {
	for _, t := range []*tracker.Tracker{c.email, c.phone, c.document} {
		identifier := c.identifierFor(t.Channel(), sess)
		if identifier == "" {
			continue
		}
		if err := t.Reset(ctx, identifier); err != nil {
			c.logger.Warn("failed to discard verification record",
				"channel", t.Channel(), "error", err)
		}
	}
}

func (c *Controller) loadSession(ctx context.Context, sessionID id.SessionID) (*models.RegistrationSession, error) {
	sess, err := c.sessions.Current(ctx, sessionID)
	if err != nil {
		return nil, c.sessionError(err)
	}
	return sess, nil
}

// sessionError translates store facts into coded errors for the transport
// layer. Already-coded errors pass through untouched.
func (c *Controller) sessionError(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeSessionExpired, "session expired; resume or start over")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "session operation failed", err)
	}
}
