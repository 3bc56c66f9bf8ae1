package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
	"medboard/pkg/platform/sentinel"
)

// availabilityColumns whitelists the fields a uniqueness check may target.
// Anything else is a caller bug, not a query to build.
var availabilityColumns = map[string]string{
	"document_number": "document_number",
	"email":           "email",
	"phone":           "phone",
}

// PostgresStore reaches the doctor_profiles table directly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CheckAvailability(ctx context.Context, field, value string) (bool, error) {
	column, ok := availabilityColumns[field]
	if !ok {
		return false, fmt.Errorf("%w: unknown availability field %q", sentinel.ErrInvalidState, field)
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM doctor_profiles WHERE %s = $1)`, column)
	if err := s.pool.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: availability query: %v", sentinel.ErrUnavailable, err)
	}
	return !exists, nil
}

func (s *PostgresStore) SubmitRegistration(ctx context.Context, data models.RegistrationData) (id.ProfileID, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return id.ProfileID{}, fmt.Errorf("encode registration data: %w", err)
	}

	profileID := id.NewProfileID()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO doctor_profiles (id, email, phone, document_number, registration_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		profileID.String(),
		data.PersonalInfo.Email,
		data.PersonalInfo.Phone,
		data.ProfessionalInfo.DocumentNumber,
		payload,
	)
	if err != nil {
		return id.ProfileID{}, fmt.Errorf("%w: insert profile: %v", sentinel.ErrUnavailable, err)
	}
	return profileID, nil
}
