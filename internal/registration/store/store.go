// Package store persists registration sessions. Writes are write-through on
// every mutation; a write made before a reload is visible to the next Load.
package store

import (
	"context"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
)

// SessionStore is the durable record for wizard progress.
type SessionStore interface {
	Load(ctx context.Context, sessionID id.SessionID) (*models.RegistrationSession, error)
	Save(ctx context.Context, session *models.RegistrationSession) error
	Delete(ctx context.Context, sessionID id.SessionID) error
}
