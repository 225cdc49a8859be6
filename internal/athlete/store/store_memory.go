// Package store persists athlete and parent accounts.
//
// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrConflict when an email is already taken
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"fmt"
	"sync"

	"vigorlog/internal/athlete/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

// InMemoryStore stores accounts in memory for tests and the demo backend.
type InMemoryStore struct {
	mu       sync.RWMutex
	athletes map[id.AthleteID]*models.Athlete
	parents  map[id.ParentID]*models.Parent
}

// New constructs an empty in-memory account store.
func New() *InMemoryStore {
	return &InMemoryStore{
		athletes: make(map[id.AthleteID]*models.Athlete),
		parents:  make(map[id.ParentID]*models.Parent),
	}
}

func (s *InMemoryStore) SaveAthlete(_ context.Context, athlete *models.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for otherID, other := range s.athletes {
		if other.Email == athlete.Email && otherID != athlete.ID {
			return fmt.Errorf("athlete email already registered: %w", sentinel.ErrConflict)
		}
	}
	copied := cloneAthlete(athlete)
	s.athletes[athlete.ID] = copied
	return nil
}

func (s *InMemoryStore) SaveParent(_ context.Context, parent *models.Parent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for otherID, other := range s.parents {
		if other.Email == parent.Email && otherID != parent.ID {
			return fmt.Errorf("parent email already registered: %w", sentinel.ErrConflict)
		}
	}
	copied := cloneParent(parent)
	s.parents[parent.ID] = copied
	return nil
}

func (s *InMemoryStore) FindAthleteByID(_ context.Context, athleteID id.AthleteID) (*models.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if athlete, ok := s.athletes[athleteID]; ok {
		return cloneAthlete(athlete), nil
	}
	return nil, fmt.Errorf("athlete not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindParentByID(_ context.Context, parentID id.ParentID) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if parent, ok := s.parents[parentID]; ok {
		return cloneParent(parent), nil
	}
	return nil, fmt.Errorf("parent not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindAthleteByEmail(_ context.Context, email string) (*models.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, athlete := range s.athletes {
		if athlete.Email == email {
			return cloneAthlete(athlete), nil
		}
	}
	return nil, fmt.Errorf("athlete not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindParentByEmail(_ context.Context, email string) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, parent := range s.parents {
		if parent.Email == email {
			return cloneParent(parent), nil
		}
	}
	return nil, fmt.Errorf("parent not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) UpdateAthlete(_ context.Context, athlete *models.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.athletes[athlete.ID]; !ok {
		return fmt.Errorf("athlete not found: %w", sentinel.ErrNotFound)
	}
	s.athletes[athlete.ID] = cloneAthlete(athlete)
	return nil
}

func (s *InMemoryStore) UpdateParent(_ context.Context, parent *models.Parent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[parent.ID]; !ok {
		return fmt.Errorf("parent not found: %w", sentinel.ErrNotFound)
	}
	s.parents[parent.ID] = cloneParent(parent)
	return nil
}

func (s *InMemoryStore) DeleteAthlete(_ context.Context, athleteID id.AthleteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.athletes[athleteID]; !ok {
		return fmt.Errorf("athlete not found: %w", sentinel.ErrNotFound)
	}
	delete(s.athletes, athleteID)
	return nil
}

func (s *InMemoryStore) DeleteParent(_ context.Context, parentID id.ParentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[parentID]; !ok {
		return fmt.Errorf("parent not found: %w", sentinel.ErrNotFound)
	}
	delete(s.parents, parentID)
	return nil
}

func (s *InMemoryStore) ListAthletes(_ context.Context) ([]*models.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	athletes := make([]*models.Athlete, 0, len(s.athletes))
	for _, athlete := range s.athletes {
		athletes = append(athletes, cloneAthlete(athlete))
	}
	return athletes, nil
}

// Clones prevent callers from mutating stored state through returned pointers.

func cloneAthlete(a *models.Athlete) *models.Athlete {
	copied := *a
	copied.ParentIDs = append([]id.ParentID(nil), a.ParentIDs...)
	if a.ParentalConsentDate != nil {
		t := *a.ParentalConsentDate
		copied.ParentalConsentDate = &t
	}
	if a.ParentalConsentBy != nil {
		p := *a.ParentalConsentBy
		copied.ParentalConsentBy = &p
	}
	return &copied
}

func cloneParent(p *models.Parent) *models.Parent {
	copied := *p
	copied.ChildrenIDs = append([]id.AthleteID(nil), p.ChildrenIDs...)
	copied.CanGiveConsentFor = append([]id.AthleteID(nil), p.CanGiveConsentFor...)
	return &copied
}
