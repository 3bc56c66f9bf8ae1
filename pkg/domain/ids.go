// Package domain holds strongly typed identifiers shared across layers.
// Wrapping uuid.UUID keeps a session id from being passed where a profile
// id is expected.
package domain

import "github.com/google/uuid"

// SessionID identifies one onboarding attempt.
type SessionID uuid.UUID

// ProfileID identifies a submitted doctor profile.
type ProfileID uuid.UUID

// NewSessionID allocates a fresh random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the id is the zero value.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseSessionID parses the canonical string form of a session id.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

func (id ProfileID) String() string {
	return uuid.UUID(id).String()
}

// NewProfileID allocates a fresh random profile id.
func NewProfileID() ProfileID {
	return ProfileID(uuid.New())
}

// IsNil reports whether the id is the zero value.
func (id ProfileID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so ids serialize as their
// canonical uuid form in JSON documents and Redis payloads.
func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ProfileID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ProfileID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ProfileID(u)
	return nil
}
