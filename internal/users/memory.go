package users

import (
	"context"
	"sync"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

// MemoryStore keeps users in process memory. It backs tests and local runs
// without MongoDB.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]models.User)}
}

func (s *MemoryStore) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return ErrEmailExists
	}
	s.byEmail[key] = *user

	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	user, ok := s.byEmail[NormalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return &user, nil
}
