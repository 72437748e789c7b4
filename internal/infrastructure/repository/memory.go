package repository

import (
	"context"
	"sync"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
)

// memoryProfileRepository is the in-process profile.Repository, used in
// tests and when the service runs without Postgres.
type memoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*profile.UserProfile
}

// NewMemoryProfileRepository creates an empty in-memory repository.
func NewMemoryProfileRepository() profile.Repository {
	return &memoryProfileRepository{profiles: make(map[string]*profile.UserProfile)}
}

func (r *memoryProfileRepository) Get(_ context.Context, userID string) (*profile.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *memoryProfileRepository) Save(_ context.Context, p *profile.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p.Clone()
	return nil
}

func (r *memoryProfileRepository) Delete(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[userID]
	delete(r.profiles, userID)
	return ok, nil
}
