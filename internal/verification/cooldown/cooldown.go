// Package cooldown computes the minimum wait between consecutive
// verification-attempt sends for one identifier. It protects the external
// send channel from abuse and gives users a predictable countdown.
//
// The policy is a single uniform formula: a hard 60 second floor once any
// attempt has been made, doubling per attempt and capped at 15 minutes.
// The policy is pure; trackers record attempts and callers consult this
// package before recording the next one.
package cooldown

import "time"

const (
	// Floor is the minimum wait after any attempt.
	Floor = time.Minute
	// Cap bounds the exponential backoff.
	Cap = 15 * time.Minute
)

// Wait returns the required wait after the given number of attempts:
// Floor * 2^(attempts-1), capped. Zero attempts require no wait.
func Wait(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	// Beyond 2^4 the doubling already exceeds the cap.
	shift := attempts - 1
	if shift > 4 {
		return Cap
	}
	wait := Floor << shift
	if wait > Cap {
		return Cap
	}
	return wait
}

// NextAllowedAttemptAt returns the earliest instant the next attempt is
// allowed. With no prior attempt (attempts == 0 or a zero timestamp) it
// returns the zero time, which precedes every clock reading: immediately
// allowed.
func NextAllowedAttemptAt(attempts int, lastAttempt time.Time) time.Time {
	if attempts <= 0 || lastAttempt.IsZero() {
		return time.Time{}
	}
	return lastAttempt.Add(Wait(attempts))
}

// Remaining returns how much of the cooldown is left as of now, zero when
// the next attempt is already allowed.
func Remaining(attempts int, lastAttempt, now time.Time) time.Duration {
	next := NextAllowedAttemptAt(attempts, lastAttempt)
	if !now.Before(next) {
		return 0
	}
	return next.Sub(now)
}
