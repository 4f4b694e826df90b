package memory

import (
	"context"
	"sync"

	"github.com/gengate/gengate/domain/credit"
)

type grantKey struct {
	userID          string
	sourceReference string
}

// CreditStore is an in-memory implementation of ports.CreditStore.
type CreditStore struct {
	mu     sync.Mutex
	grants map[grantKey]credit.Grant
}

// NewCreditStore creates a new in-memory credit store.
func NewCreditStore() *CreditStore {
	return &CreditStore{
		grants: make(map[grantKey]credit.Grant),
	}
}

// InsertGrantIfAbsent inserts a grant unless one already exists for the
// same (user, source reference).
func (s *CreditStore) InsertGrantIfAbsent(ctx context.Context, g credit.Grant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{userID: g.UserID, sourceReference: g.SourceReference}
	if _, exists := s.grants[key]; exists {
		return false, nil
	}
	s.grants[key] = g
	return true, nil
}
