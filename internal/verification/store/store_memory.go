package store

import (
	"context"
	"sync"

	"medboard/internal/verification/models"
	"medboard/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps verification records in a map. Records are
// copied on the way in and out so callers never alias store internals.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

func NewInMemory() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[string]models.Record)}
}

func memoryKey(channel models.Channel, identifier string) string {
	return string(channel) + ":" + identifier
}

func (s *InMemoryRecordStore) Load(_ context.Context, channel models.Channel, identifier string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[memoryKey(channel, identifier)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := record
	return &out, nil
}

func (s *InMemoryRecordStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[memoryKey(record.Channel, record.Identifier)] = *record
	return nil
}

func (s *InMemoryRecordStore) Delete(_ context.Context, channel models.Channel, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, memoryKey(channel, identifier))
	return nil
}
