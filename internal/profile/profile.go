// Package profile is the boundary to the hosted profile backend. The wizard
// consults it for uniqueness checks during professional-info validation and
// hands it the finished registration on submit.
package profile

import (
	"context"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
)

// Store is the external profile backend contract.
type Store interface {
	// CheckAvailability reports whether value is free to use for field
	// (e.g. a license/document number not yet registered).
	CheckAvailability(ctx context.Context, field, value string) (bool, error)
	// SubmitRegistration persists a finished registration and returns the
	// new profile id. Callers guarantee every wizard step was completed.
	SubmitRegistration(ctx context.Context, data models.RegistrationData) (id.ProfileID, error)
}
