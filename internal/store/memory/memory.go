// Package memory holds in-memory implementations of the auth storage
// interfaces. They back unit tests and the dependency-free dev mode of
// cmd/api; durable deployments use the pg and redis stores instead.
package memory

import (
	"context"
	"sync"
	"time"

	"keyward.org/internal/auth"
)

// UserRepository is a map-backed auth.UserRepository.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]auth.Principal
	byEmail map[string]string
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository returns an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]auth.Principal),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(ctx context.Context, p *auth.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[p.Email]; ok {
		return auth.ErrDuplicateEmail
	}
	r.byID[p.ID] = *p
	r.byEmail[p.Email] = p.ID
	return nil
}

func (r *UserRepository) Find(ctx context.Context, id string) (*auth.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	p := r.byID[id]
	copied := p
	return &copied, nil
}

func (r *UserRepository) Update(ctx context.Context, p *auth.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[p.ID]
	if !ok {
		return auth.ErrNotFound
	}
	if existing.Email != p.Email {
		if owner, taken := r.byEmail[p.Email]; taken && owner != p.ID {
			return auth.ErrDuplicateEmail
		}
		delete(r.byEmail, existing.Email)
		r.byEmail[p.Email] = p.ID
	}
	r.byID[p.ID] = *p
	return nil
}

// RevocationStore is a map-backed auth.RevocationStore.
type RevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

// NewRevocationStore returns an empty revocation store.
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: make(map[string]time.Time)}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; ok {
		return nil
	}
	s.revoked[tokenID] = expiresAt
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}
