package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gengate/gengate/domain/usage"
)

// LedgerStore is an in-memory implementation of ports.LedgerStore.
type LedgerStore struct {
	mu     sync.RWMutex
	events []usage.Event
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

// Record appends a consumption event.
func (s *LedgerStore) Record(ctx context.Context, e usage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
	return nil
}

// SumCompletedThisMonth aggregates completed, undeleted events inside
// [start, end) using the domain aggregate.
func (s *LedgerStore) SumCompletedThisMonth(ctx context.Context, userID string, start, end time.Time, perSecondRate float64) (usage.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var own []usage.Event
	for _, e := range s.events {
		if e.UserID == userID {
			own = append(own, e)
		}
	}
	summary := usage.Aggregate(own, perSecondRate, start, end)
	summary.UserID = userID
	return summary, nil
}
