// Package session owns the lifecycle of a registration session: creation,
// partial data merges, per-step validation and the single gate through
// which every step transition passes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dario.cat/mergo"

	"medboard/internal/registration/models"
	"medboard/internal/registration/navigation"
	"medboard/internal/registration/rules"
	"medboard/internal/registration/store"
	id "medboard/pkg/domain"
	"medboard/pkg/platform/sentinel"
)

// Manager orchestrates the session store and the validation rule table.
// It holds no per-session state itself; every operation loads, mutates and
// writes through, so a reload sees exactly what the last mutation wrote.
type Manager struct {
	store   store.SessionStore
	rules   *rules.Table
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a session manager. timeout is the inactivity window after
// which a session is treated as absent.
func New(st store.SessionStore, table *rules.Table, timeout time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		rules:   table,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create allocates a fresh session positioned on the first step and
// persists it.
func (m *Manager) Create(ctx context.Context, device string) (*models.RegistrationSession, error) {
	session := models.NewRegistrationSession(device, m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	return session, nil
}

// Current returns the session if present and not expired. An expired
// session is purged from the store and returned alongside
// sentinel.ErrExpired so the caller can offer to resume from its data;
// callers that don't care treat ErrExpired the same as ErrNotFound.
func (m *Manager) Current(ctx context.Context, sessionID id.SessionID) (*models.RegistrationSession, error) {
	session, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ExpiredAt(m.now(), m.timeout) {
		if derr := m.store.Delete(ctx, sessionID); derr != nil {
			m.logger.Warn("failed to purge expired session", "session_id", sessionID, "error", derr)
		}
		return session, sentinel.ErrExpired
	}
	return session, nil
}

// UpdateData deep-merges partial into the session's accumulated data and
// refreshes the activity timestamp. Nested fields are overwritten
// field-by-field; slice-valued fields are replaced wholesale.
func (m *Manager) UpdateData(ctx context.Context, sessionID id.SessionID, partial models.RegistrationData) (*models.RegistrationSession, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := mergo.Merge(&session.Data, partial, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge registration data: %w", err)
	}

	session.Touch(m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session data: %w", err)
	}
	return session, nil
}

// SetLicenseVerification replaces the license verdict section wholesale.
// Verdicts carry meaningful zero values (Verified=false, empty registry
// fields), which a merge would silently drop; assignment is the only write
// that lets a negative verdict clear an earlier positive one.
func (m *Manager) SetLicenseVerification(ctx context.Context, sessionID id.SessionID, verdict models.LicenseVerification) (*models.RegistrationSession, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.Data.LicenseVerification = verdict
	session.Touch(m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save license verdict: %w", err)
	}
	return session, nil
}

// SetIdentityVerification replaces the identity verdict section wholesale,
// for the same reason as SetLicenseVerification.
func (m *Manager) SetIdentityVerification(ctx context.Context, sessionID id.SessionID, verdict models.IdentityVerification) (*models.RegistrationSession, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.Data.IdentityVerification = verdict
	session.Touch(m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save identity verdict: %w", err)
	}
	return session, nil
}

// ValidateCurrentStep runs the rule registered for the current step.
// It never mutates state.
func (m *Manager) ValidateCurrentStep(ctx context.Context, sessionID id.SessionID) ([]rules.FieldError, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.rules.Validate(session.CurrentStep, session.Data), nil
}

// IsStepValid runs the rule for an arbitrary step against the current data.
func (m *Manager) IsStepValid(ctx context.Context, sessionID id.SessionID, step models.Step) (bool, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return m.rules.IsValid(step, session.Data), nil
}

// IsStepCompleted reports whether step is in the completed set.
func (m *Manager) IsStepCompleted(ctx context.Context, sessionID id.SessionID, step models.Step) (bool, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.IsCompleted(step), nil
}

// ErrStepInvalid guards the completed-set invariant: a step may only enter
// the completed set while its validation passes.
var ErrStepInvalid = errors.New("step validation has not passed")

// CompleteStep adds step to the completed set. Re-completing is a no-op.
// The step's rule must pass at the time of completion.
func (m *Manager) CompleteStep(ctx context.Context, sessionID id.SessionID, step models.Step) error {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.IsCompleted(step) {
		return nil
	}
	if !m.rules.IsValid(step, session.Data) {
		return fmt.Errorf("complete %s: %w", step, ErrStepInvalid)
	}

	session.Complete(step)
	session.Touch(m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return fmt.Errorf("save completed step: %w", err)
	}
	return nil
}

// NavigateToStep moves the current step if the target is reachable.
// It returns false and leaves state untouched otherwise. This is the single
// gate for all step transitions; no other code path mutates CurrentStep.
// A navigation to the step the session is already on is an idempotent
// success.
func (m *Manager) NavigateToStep(ctx context.Context, sessionID id.SessionID, step models.Step) (bool, error) {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !navigation.Reachable(session, step) {
		return false, nil
	}
	if session.CurrentStep == step {
		return true, nil
	}

	session.CurrentStep = step
	session.Touch(m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return false, fmt.Errorf("save navigation: %w", err)
	}
	return true, nil
}

// Rules exposes the rule table for callers that validate outside the
// session lifecycle (e.g. the wizard surfacing field errors).
func (m *Manager) Rules() *rules.Table {
	return m.rules
}

// Reset destroys the session entirely.
func (m *Manager) Reset(ctx context.Context, sessionID id.SessionID) error {
	return m.store.Delete(ctx, sessionID)
}
