package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{"zero attempts requires no wait", 0, 0},
		{"negative attempts requires no wait", -3, 0},
		{"first attempt waits the floor", 1, time.Minute},
		{"second attempt doubles", 2, 2 * time.Minute},
		{"third attempt doubles again", 3, 4 * time.Minute},
		{"fourth attempt", 4, 8 * time.Minute},
		{"fifth attempt hits the cap", 5, 15 * time.Minute},
		{"many attempts stay capped", 50, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wait(tt.attempts))
		})
	}
}

func TestWaitNeverBelowFloor(t *testing.T) {
	// Once any attempt has been made there is a hard floor, whatever the
	// attempt count.
	for attempts := 1; attempts <= 100; attempts++ {
		assert.GreaterOrEqual(t, Wait(attempts), Floor, "attempts=%d", attempts)
	}
}

func TestWaitMonotonic(t *testing.T) {
	for attempts := 1; attempts < 100; attempts++ {
		assert.LessOrEqual(t, Wait(attempts), Wait(attempts+1), "attempts=%d", attempts)
	}
}

func TestNextAllowedAttemptAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("zero attempts means immediately allowed", func(t *testing.T) {
		assert.True(t, NextAllowedAttemptAt(0, base).IsZero())
	})

	t.Run("zero timestamp means immediately allowed", func(t *testing.T) {
		assert.True(t, NextAllowedAttemptAt(3, time.Time{}).IsZero())
	})

	t.Run("adds the wait to the last attempt", func(t *testing.T) {
		assert.Equal(t, base.Add(2*time.Minute), NextAllowedAttemptAt(2, base))
	})
}

func TestRemaining(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fresh attempt leaves the full wait", func(t *testing.T) {
		assert.Equal(t, time.Minute, Remaining(1, base, base))
	})

	t.Run("counts down with the clock", func(t *testing.T) {
		assert.Equal(t, 20*time.Second, Remaining(1, base, base.Add(40*time.Second)))
	})

	t.Run("zero once the wait has elapsed", func(t *testing.T) {
		assert.Zero(t, Remaining(1, base, base.Add(time.Minute)))
		assert.Zero(t, Remaining(1, base, base.Add(time.Hour)))
	})

	t.Run("zero with no prior attempt", func(t *testing.T) {
		assert.Zero(t, Remaining(0, time.Time{}, base))
	})
}
