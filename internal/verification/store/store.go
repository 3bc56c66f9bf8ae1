// Package store persists verification records keyed by channel and
// identifier.
package store

import (
	"context"

	"medboard/internal/verification/models"
)

// RecordStore is the durable record for one channel's verification state.
type RecordStore interface {
	Load(ctx context.Context, channel models.Channel, identifier string) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	Delete(ctx context.Context, channel models.Channel, identifier string) error
}
