// Package audit records wizard lifecycle events for the ops trail. Emission
// is fail-open: a broken broker never blocks a user moving through the
// wizard.
package audit

import (
	"context"
	"time"
)

// Actions recorded on the audit trail.
const (
	ActionSessionCreated        = "session_created"
	ActionSessionExpired        = "session_expired"
	ActionSessionReset          = "session_reset"
	ActionStepCompleted         = "step_completed"
	ActionVerificationSent      = "verification_sent"
	ActionVerificationConfirmed = "verification_confirmed"
	ActionRegistrationSubmitted = "registration_submitted"
)

// Event is one audit record.
type Event struct {
	Action    string            `json:"action"`
	SessionID string            `json:"session_id"`
	Step      string            `json:"step,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	At        time.Time         `json:"at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Publisher emits audit events. Implementations must not block the caller
// on broker availability.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Nop drops every event, for wiring without a broker.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
