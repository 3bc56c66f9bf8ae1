// Package tracker owns the attempt count, cooldown inputs and verified
// state for one verification channel. One generic tracker serves email,
// phone and document checks; the channel is fixed at construction so the
// two contact flows can never drift apart again.
//
// The tracker is a pure recorder: it does not enforce the cooldown policy.
// Callers consult the cooldown package before recording an attempt, so
// cooldown failures stay an expected, countdown-shaped condition rather
// than a storage error.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"medboard/internal/verification/models"
	"medboard/internal/verification/store"
	"medboard/pkg/platform/sentinel"
)

// ErrNoActiveVerification signals a caller bug or a record that raced out
// of existence (tab closed and reopened, record expired). Callers restart
// the flow with Start; this is never surfaced raw to an end user.
var ErrNoActiveVerification = errors.New("no active verification for identifier")

// Tracker tracks verification state for a single channel.
type Tracker struct {
	channel     models.Channel
	store       store.RecordStore
	verifiedTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a tracker for one channel. verifiedTTL is how long a
// confirmed verification stays valid; it is deliberately larger than the
// registration session timeout.
func New(channel models.Channel, st store.RecordStore, verifiedTTL time.Duration, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		channel:     channel,
		store:       st,
		verifiedTTL: verifiedTTL,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Channel returns the channel this tracker serves.
func (t *Tracker) Channel() models.Channel {
	return t.channel
}

// Start creates or replaces the record for identifier with zero attempts
// and no verified state. Starting over an existing record discards it; a
// changed identifier therefore never inherits the old identifier's state.
func (t *Tracker) Start(ctx context.Context, identifier string) error {
	record := &models.Record{
		Channel:    t.channel,
		Identifier: identifier,
		StartedAt:  t.now(),
	}
	if err := t.store.Save(ctx, record); err != nil {
		return fmt.Errorf("start verification: %w", err)
	}
	return nil
}

// Record returns the current record for identifier, or
// ErrNoActiveVerification when none exists. Callers use it to feed the
// cooldown policy before recording an attempt.
func (t *Tracker) Record(ctx context.Context, identifier string) (*models.Record, error) {
	record, err := t.store.Load(ctx, t.channel, identifier)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrNoActiveVerification
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecordAttempt increments the attempt count and stamps the attempt time.
// payload is opaque; the wizard stores the hash of the sent code here.
// The tracker does not check the cooldown: that is the caller's job, done
// before this call.
func (t *Tracker) RecordAttempt(ctx context.Context, identifier string, payload []byte) error {
	record, err := t.Record(ctx, identifier)
	if err != nil {
		return err
	}

	now := t.now()
	record.Attempts++
	record.LastAttemptAt = &now
	if payload != nil {
		record.LastPayload = payload
	}
	if err := t.store.Save(ctx, record); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// MarkVerified sets the verified state. A missing record returns
// ErrNoActiveVerification so the caller can restart the flow; this can
// legitimately race with an expired or cleared record.
func (t *Tracker) MarkVerified(ctx context.Context, identifier string) error {
	record, err := t.Record(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNoActiveVerification) {
			t.logger.Warn("mark verified on missing record",
				"channel", t.channel, "identifier", identifier)
		}
		return err
	}

	now := t.now()
	record.Verified = true
	record.VerifiedAt = &now
	if err := t.store.Save(ctx, record); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// IsVerified reports whether identifier has a live verified state. Expiry
// is lazy: a stale verified state is cleared on this read so subsequent
// queries stay O(1) without a background sweep.
func (t *Tracker) IsVerified(ctx context.Context, identifier string) (bool, error) {
	record, err := t.store.Load(ctx, t.channel, identifier)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if record.Verified && !record.VerifiedWithin(t.now(), t.verifiedTTL) {
		record.ClearVerified()
		if serr := t.store.Save(ctx, record); serr != nil {
			t.logger.Warn("failed to clear stale verified state",
				"channel", t.channel, "identifier", identifier, "error", serr)
		}
		return false, nil
	}
	return record.Verified, nil
}

// HasActiveSession reports whether a live verified session exists for
// identifier. The wizard uses it to skip a redundant re-verification
// prompt; semantics match IsVerified.
func (t *Tracker) HasActiveSession(ctx context.Context, identifier string) (bool, error) {
	return t.IsVerified(ctx, identifier)
}

// ExtendSession refreshes the verified timestamp of an already-verified
// record. Without this, a long multi-step session could let a previously
// verified channel silently expire mid-flow.
func (t *Tracker) ExtendSession(ctx context.Context, identifier string) error {
	record, err := t.Record(ctx, identifier)
	if err != nil {
		return err
	}
	if !record.VerifiedWithin(t.now(), t.verifiedTTL) {
		return fmt.Errorf("extend session: %w", sentinel.ErrInvalidState)
	}

	now := t.now()
	record.VerifiedAt = &now
	if err := t.store.Save(ctx, record); err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

// ClearVerified drops the verified state while keeping the attempt count,
// so revoking a verification does not also reset its cooldown. Clearing a
// missing record is a no-op.
func (t *Tracker) ClearVerified(ctx context.Context, identifier string) error {
	record, err := t.Record(ctx, identifier)
	if errors.Is(err, ErrNoActiveVerification) {
		return nil
	}
	if err != nil {
		return err
	}
	if !record.Verified {
		return nil
	}

	record.ClearVerified()
	if err := t.store.Save(ctx, record); err != nil {
		return fmt.Errorf("clear verified: %w", err)
	}
	return nil
}

// Reset discards the record entirely. Resetting a missing record is a
// no-op.
func (t *Tracker) Reset(ctx context.Context, identifier string) error {
	return t.store.Delete(ctx, t.channel, identifier)
}
