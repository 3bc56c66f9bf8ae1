package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medboard/internal/platform/logger"
	"medboard/internal/verification/models"
	"medboard/internal/verification/store"
	"medboard/pkg/platform/sentinel"
)

const verifiedTTL = 24 * time.Hour

type TrackerSuite struct {
	suite.Suite
	store   *store.InMemoryRecordStore
	tracker *Tracker
	now     time.Time
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.tracker = New(models.ChannelEmail, s.store, verifiedTTL, logger.Discard(),
		WithClock(func() time.Time { return s.now }))
}

func (s *TrackerSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

// =============================================================================
// Start / Record
// =============================================================================

func (s *TrackerSuite) TestStart() {
	ctx := context.Background()

	s.Run("creates a zeroed record", func() {
		s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))

		record, err := s.tracker.Record(ctx, "a@example.com")
		s.Require().NoError(err)
		s.Equal(models.ChannelEmail, record.Channel)
		s.Equal("a@example.com", record.Identifier)
		s.Zero(record.Attempts)
		s.False(record.Verified)
		s.Equal(s.now, record.StartedAt)
	})

	s.Run("restart discards prior attempts and verified state", func() {
		s.Require().NoError(s.tracker.Start(ctx, "b@example.com"))
		s.Require().NoError(s.tracker.RecordAttempt(ctx, "b@example.com", []byte("h1")))
		s.Require().NoError(s.tracker.MarkVerified(ctx, "b@example.com"))

		s.Require().NoError(s.tracker.Start(ctx, "b@example.com"))

		record, err := s.tracker.Record(ctx, "b@example.com")
		s.Require().NoError(err)
		s.Zero(record.Attempts)
		s.False(record.Verified)
		s.Empty(record.LastPayload)
	})

	s.Run("record for unknown identifier returns ErrNoActiveVerification", func() {
		_, err := s.tracker.Record(ctx, "nobody@example.com")
		s.ErrorIs(err, ErrNoActiveVerification)
	})
}

// =============================================================================
// RecordAttempt
// =============================================================================

func (s *TrackerSuite) TestRecordAttempt() {
	ctx := context.Background()

	s.Run("increments attempts and stamps the time", func() {
		s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
		s.Require().NoError(s.tracker.RecordAttempt(ctx, "a@example.com", []byte("hash-1")))

		record, err := s.tracker.Record(ctx, "a@example.com")
		s.Require().NoError(err)
		s.Equal(1, record.Attempts)
		s.Require().NotNil(record.LastAttemptAt)
		s.Equal(s.now, *record.LastAttemptAt)
		s.Equal([]byte("hash-1"), record.LastPayload)
	})

	s.Run("nil payload keeps the previous one", func() {
		s.Require().NoError(s.tracker.RecordAttempt(ctx, "a@example.com", nil))

		record, err := s.tracker.Record(ctx, "a@example.com")
		s.Require().NoError(err)
		s.Equal(2, record.Attempts)
		s.Equal([]byte("hash-1"), record.LastPayload)
	})

	s.Run("missing record returns ErrNoActiveVerification", func() {
		err := s.tracker.RecordAttempt(ctx, "nobody@example.com", nil)
		s.ErrorIs(err, ErrNoActiveVerification)
	})
}

// =============================================================================
// MarkVerified / IsVerified / expiry
// =============================================================================

func (s *TrackerSuite) TestMarkVerified() {
	ctx := context.Background()

	s.Run("sets verified state", func() {
		s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
		s.Require().NoError(s.tracker.MarkVerified(ctx, "a@example.com"))

		verified, err := s.tracker.IsVerified(ctx, "a@example.com")
		s.Require().NoError(err)
		s.True(verified)
	})

	s.Run("missing record returns ErrNoActiveVerification", func() {
		err := s.tracker.MarkVerified(ctx, "nobody@example.com")
		s.ErrorIs(err, ErrNoActiveVerification)
	})
}

func (s *TrackerSuite) TestClearVerified() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
	s.Require().NoError(s.tracker.RecordAttempt(ctx, "a@example.com", []byte("h1")))
	s.Require().NoError(s.tracker.MarkVerified(ctx, "a@example.com"))

	s.Run("drops the verified state but keeps the attempt count", func() {
		s.Require().NoError(s.tracker.ClearVerified(ctx, "a@example.com"))

		verified, err := s.tracker.IsVerified(ctx, "a@example.com")
		s.Require().NoError(err)
		s.False(verified)

		record, err := s.tracker.Record(ctx, "a@example.com")
		s.Require().NoError(err)
		s.Equal(1, record.Attempts)
	})

	s.Run("clearing a missing record is a no-op", func() {
		s.NoError(s.tracker.ClearVerified(ctx, "nobody@example.com"))
	})
}

func (s *TrackerSuite) TestIsVerifiedExpiry() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
	s.Require().NoError(s.tracker.MarkVerified(ctx, "a@example.com"))

	s.Run("stays verified within the ttl", func() {
		s.advance(verifiedTTL)
		verified, err := s.tracker.IsVerified(ctx, "a@example.com")
		s.Require().NoError(err)
		s.True(verified)
	})

	s.Run("expires lazily past the ttl", func() {
		s.advance(time.Second)
		verified, err := s.tracker.IsVerified(ctx, "a@example.com")
		s.Require().NoError(err)
		s.False(verified)
	})

	s.Run("expiry cleared the stored state, attempts survive", func() {
		record, err := s.tracker.Record(ctx, "a@example.com")
		s.Require().NoError(err)
		s.False(record.Verified)
		s.Nil(record.VerifiedAt)
	})

	s.Run("unknown identifier is simply unverified", func() {
		verified, err := s.tracker.IsVerified(ctx, "nobody@example.com")
		s.Require().NoError(err)
		s.False(verified)
	})
}

// =============================================================================
// ExtendSession
// =============================================================================

func (s *TrackerSuite) TestExtendSession() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
	s.Require().NoError(s.tracker.MarkVerified(ctx, "a@example.com"))

	s.Run("refreshes the verified timestamp", func() {
		s.advance(12 * time.Hour)
		s.Require().NoError(s.tracker.ExtendSession(ctx, "a@example.com"))

		// Another near-full ttl later the original verification would have
		// expired; the extension keeps it live.
		s.advance(verifiedTTL - time.Hour)
		verified, err := s.tracker.IsVerified(ctx, "a@example.com")
		s.Require().NoError(err)
		s.True(verified)
	})

	s.Run("expired verification cannot be extended", func() {
		s.advance(verifiedTTL + time.Hour)
		err := s.tracker.ExtendSession(ctx, "a@example.com")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("never-verified record cannot be extended", func() {
		s.Require().NoError(s.tracker.Start(ctx, "fresh@example.com"))
		err := s.tracker.ExtendSession(ctx, "fresh@example.com")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

// =============================================================================
// Identifier isolation / Reset
// =============================================================================

func (s *TrackerSuite) TestIdentifierIsolation() {
	ctx := context.Background()

	// Changing the email mid-flow starts a fresh record; the old address's
	// verified state must not leak to the new one.
	s.Require().NoError(s.tracker.Start(ctx, "old@example.com"))
	s.Require().NoError(s.tracker.MarkVerified(ctx, "old@example.com"))

	verified, err := s.tracker.IsVerified(ctx, "new@example.com")
	s.Require().NoError(err)
	s.False(verified)

	s.Require().NoError(s.tracker.Start(ctx, "new@example.com"))
	record, err := s.tracker.Record(ctx, "new@example.com")
	s.Require().NoError(err)
	s.Zero(record.Attempts)
	s.False(record.Verified)
}

func (s *TrackerSuite) TestReset() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.Start(ctx, "a@example.com"))
	s.Require().NoError(s.tracker.Reset(ctx, "a@example.com"))

	_, err := s.tracker.Record(ctx, "a@example.com")
	s.ErrorIs(err, ErrNoActiveVerification)

	s.Run("resetting a missing record is a no-op", func() {
		s.NoError(s.tracker.Reset(ctx, "a@example.com"))
	})
}
