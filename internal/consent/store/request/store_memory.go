// Package request persists dual-consent requests across three backends:
// memory for tests and the demo, PostgreSQL for durable deployments, and
// Redis for deployments that want the 7-day window enforced by key expiry.
//
// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested request does not exist
// - Return sentinel.ErrConflict on duplicate IDs
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
package request

import (
	"context"
	"sort"
	"sync"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

// InMemoryStore stores dual-consent requests in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.DualConsentRequest
}

// New constructs an empty in-memory request store.
func New() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*models.DualConsentRequest)}
}

func (s *InMemoryStore) Save(_ context.Context, request *models.DualConsentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.DualConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *InMemoryStore) Update(_ context.Context, request *models.DualConsentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *InMemoryStore) ListByAthlete(_ context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var listed []*models.DualConsentRequest
	for _, request := range s.requests {
		if request.AthleteID == athleteID {
			listed = append(listed, cloneRequest(request))
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].CreatedAt.Before(listed[j].CreatedAt) })
	return listed, nil
}

// ListPendingByParent returns requests stored as pending for the parent.
// Callers must still apply ComputeStatus: a stored pending request may have
// expired since it was written.
func (s *InMemoryStore) ListPendingByParent(_ context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var listed []*models.DualConsentRequest
	for _, request := range s.requests {
		if request.ParentID == parentID && request.Status == models.StatusPending {
			listed = append(listed, cloneRequest(request))
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].CreatedAt.Before(listed[j].CreatedAt) })
	return listed, nil
}

func cloneRequest(r *models.DualConsentRequest) *models.DualConsentRequest {
	copied := *r
	copied.RequiredConsents = append([]models.Type(nil), r.RequiredConsents...)
	return &copied
}
