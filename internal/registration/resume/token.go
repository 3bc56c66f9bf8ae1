// Package resume issues and validates signed resume tokens. The token
// carries only the session id; the client stores it across reloads and
// presents it to pick up a registration session where it left off.
package resume

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "medboard/pkg/domain"
)

const issuer = "medboard"

var (
	ErrInvalidToken = errors.New("invalid resume token")
)

// Issuer mints and validates HS256 resume tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates a token issuer. ttl bounds how long a token is honored,
// independently of the session's own inactivity timeout.
func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(signingKey), ttl: ttl, now: time.Now}
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue returns a signed token for the given session id.
func (i *Issuer) Issue(sessionID id.SessionID) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns the session id it names.
func (i *Issuer) Validate(tokenString string) (id.SessionID, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil || !token.Valid {
		return id.SessionID{}, ErrInvalidToken
	}

	sessionID, err := id.ParseSessionID(c.Subject)
	if err != nil {
		return id.SessionID{}, ErrInvalidToken
	}
	return sessionID, nil
}
