package models

import "time"

// Channel is one independent out-of-band confirmation flow.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
	ChannelDocument Channel = "document"
)

// IsChannel reports whether c names a known channel.
func IsChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelPhone, ChannelDocument:
		return true
	}
	return false
}

// Record tracks the verification state for one identifier on one channel.
// The identifier is the email address, phone number or document number
// being verified, not the user's stable account id: editing the field
// discards the record and restarts from zero attempts.
type Record struct {
	Channel       Channel    `json:"channel"`
	Identifier    string     `json:"identifier"`
	Verified      bool       `json:"verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	// LastPayload is opaque to the tracker; the wizard stores the bcrypt
	// hash of the most recently sent code here.
	LastPayload []byte    `json:"last_payload,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// VerifiedWithin reports whether the record is verified and the verified
// state is younger than ttl as of now.
func (r *Record) VerifiedWithin(now time.Time, ttl time.Duration) bool {
	if !r.Verified || r.VerifiedAt == nil {
		return false
	}
	return now.Sub(*r.VerifiedAt) <= ttl
}

// ClearVerified drops a stale verified state, keeping attempt history.
func (r *Record) ClearVerified() {
	r.Verified = false
	r.VerifiedAt = nil
}
