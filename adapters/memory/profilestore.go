// Package memory provides in-memory implementations of storage ports,
// used by dev mode and tests.
package memory

import (
	"context"
	"sync"

	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
)

// ProfileStore is an in-memory implementation of ports.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]identity.Identity // by ID
	byEmail  map[string]string            // email -> ID
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]identity.Identity),
		byEmail:  make(map[string]string),
	}
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, id string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return identity.Identity{}, ports.ErrNotFound
	}
	return p, nil
}

// GetByEmail retrieves a profile by email.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return identity.Identity{}, ports.ErrNotFound
	}
	return s.profiles[id], nil
}

// Create stores a new profile. An existing ID surfaces as
// ports.ErrDuplicate, matching the SQLite adapter.
func (s *ProfileStore) Create(ctx context.Context, p identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return ports.ErrDuplicate
	}

	s.profiles[p.ID] = p
	s.byEmail[p.Email] = p.ID
	return nil
}

// Update modifies an existing profile.
func (s *ProfileStore) Update(ctx context.Context, p identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.profiles[p.ID]
	if !ok {
		return ports.ErrNotFound
	}

	if old.Email != p.Email {
		delete(s.byEmail, old.Email)
		s.byEmail[p.Email] = p.ID
	}
	s.profiles[p.ID] = p
	return nil
}
