package store

import (
	"context"
	"encoding/json"
	"sync"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
	"medboard/pkg/platform/sentinel"
)

// InMemorySessionStore keeps the initial implementation lightweight and
// testable. It round-trips through JSON so callers get copies, not aliases
// into the map, matching the Redis store's semantics.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID][]byte
}

func NewInMemory() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID][]byte)}
}

func (s *InMemorySessionStore) Load(_ context.Context, sessionID id.SessionID) (*models.RegistrationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var session models.RegistrationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *InMemorySessionStore) Save(_ context.Context, session *models.RegistrationSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = raw
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
