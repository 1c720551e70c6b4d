package user

import (
	"context"
	"fmt"
	"sync"

	"issuehub/internal/auth/models"
	id "issuehub/pkg/domain"
	"issuehub/pkg/platform/sentinel"
)

// InMemoryUserStore indexes users by ID, email and username. Callers get
// copies, never the stored pointers.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.User
	byEmail    map[string]id.UserID
	byUsername map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[id.UserID]*models.User),
		byEmail:    make(map[string]id.UserID),
		byUsername: make(map[string]id.UserID),
	}
}

// Create inserts a user; a taken email or username returns ErrConflict.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return fmt.Errorf("email taken: %w", sentinel.ErrConflict)
	}
	if _, ok := s.byUsername[user.Username]; ok {
		return fmt.Errorf("username taken: %w", sentinel.ErrConflict)
	}
	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.users[userID]
	return &out, nil
}

// Summaries resolves the given IDs; unknown IDs are absent from the result.
func (s *InMemoryUserStore) Summaries(_ context.Context, ids []id.UserID) (map[id.UserID]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.UserID]models.UserSummary, len(ids))
	for _, userID := range ids {
		if u, ok := s.users[userID]; ok {
			out[userID] = u.Summary()
		}
	}
	return out, nil
}
