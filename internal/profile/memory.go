package profile

import (
	"context"
	"sync"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
)

// InMemoryStore backs the profile boundary for development and tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	taken       map[string]bool
	submissions map[id.ProfileID]models.RegistrationData
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		taken:       make(map[string]bool),
		submissions: make(map[id.ProfileID]models.RegistrationData),
	}
}

func takenKey(field, value string) string {
	return field + ":" + value
}

// MarkTaken registers a field/value pair as already in use, for tests and
// seeding.
func (s *InMemoryStore) MarkTaken(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taken[takenKey(field, value)] = true
}

func (s *InMemoryStore) CheckAvailability(_ context.Context, field, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.taken[takenKey(field, value)], nil
}

func (s *InMemoryStore) SubmitRegistration(_ context.Context, data models.RegistrationData) (id.ProfileID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profileID := id.NewProfileID()
	s.submissions[profileID] = data
	s.taken[takenKey("document_number", data.ProfessionalInfo.DocumentNumber)] = true
	return profileID, nil
}

// Submissions returns a copy of everything submitted, for tests.
func (s *InMemoryStore) Submissions() map[id.ProfileID]models.RegistrationData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.ProfileID]models.RegistrationData, len(s.submissions))
	for k, v := range s.submissions {
		out[k] = v
	}
	return out
}
