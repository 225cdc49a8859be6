// Package store persists consent records and dual-consent requests.
//
// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrConflict on duplicate IDs
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

// InMemoryStore stores consent records in memory for tests and the demo
// backend. Records are append-only; revocation is the only mutation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ConsentID]*models.Record
}

// New constructs an empty in-memory consent record store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.ConsentID]*models.Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	copyRecord := *record
	s.records[record.ID] = &copyRecord
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.AthleteID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var listed []*models.Record
	for _, record := range s.records {
		if record.SubjectID == subjectID {
			copyRecord := *record
			listed = append(listed, &copyRecord)
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].GrantedAt.Before(listed[j].GrantedAt) })
	return listed, nil
}

// Revoke stamps RevokedAt on an active record. Revoking an already revoked
// record reports ErrNotFound, same as a missing one.
func (s *InMemoryStore) Revoke(_ context.Context, consentID id.ConsentID, revokedAt time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[consentID]
	if !ok || record.RevokedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	record.RevokedAt = &revokedAt
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) DeleteBySubject(_ context.Context, subjectID id.AthleteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for consentID, record := range s.records {
		if record.SubjectID == subjectID {
			delete(s.records, consentID)
		}
	}
	return nil
}
