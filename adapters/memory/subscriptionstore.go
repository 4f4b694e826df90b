package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/ports"
)

// SubscriptionStore is an in-memory implementation of ports.SubscriptionStore.
type SubscriptionStore struct {
	mu         sync.RWMutex
	byExternal map[string]billing.Subscription
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		byExternal: make(map[string]billing.Subscription),
	}
}

// MostRecentActive returns the most recently created active subscription
// for a user.
func (s *SubscriptionStore) MostRecentActive(ctx context.Context, userID string) (billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best billing.Subscription
	found := false
	for _, sub := range s.byExternal {
		if sub.UserID != userID || sub.Status != billing.SubscriptionStatusActive {
			continue
		}
		if !found || sub.CreatedAt.After(best.CreatedAt) {
			best = sub
			found = true
		}
	}
	if !found {
		return billing.Subscription{}, ports.ErrNotFound
	}
	return best, nil
}

// UpsertByExternalID inserts or updates a record keyed by external ID.
// An existing record keeps its local ID and creation time.
func (s *SubscriptionStore) UpsertByExternalID(ctx context.Context, sub billing.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byExternal[sub.ExternalID]; ok {
		sub.ID = old.ID
		sub.CreatedAt = old.CreatedAt
	}
	sub.UpdatedAt = time.Now().UTC()
	s.byExternal[sub.ExternalID] = sub
	return nil
}

// MarkCanceledByUser marks every non-canceled subscription for a user as
// canceled.
func (s *SubscriptionStore) MarkCanceledByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, sub := range s.byExternal {
		if sub.UserID != userID || sub.Status == billing.SubscriptionStatusCanceled {
			continue
		}
		sub.Status = billing.SubscriptionStatusCanceled
		t := at
		sub.CanceledAt = &t
		sub.UpdatedAt = at
		s.byExternal[key] = sub
		n++
	}
	return n, nil
}
