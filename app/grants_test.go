package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newGrantService(store *mockCreditStore) *GrantService {
	return NewGrantService(store, &seqIDGen{}, fakeClock{testNow}, zerolog.Nop())
}

func TestApply_FirstCallPersists(t *testing.T) {
	store := newMockCreditStore()
	svc := newGrantService(store)

	applied, err := svc.Apply(context.Background(), "usr_1", 100, "cs_session_1", nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Error("first apply should persist")
	}
	if len(store.grants) != 1 {
		t.Errorf("grants = %d, want 1", len(store.grants))
	}
}

// Applying the same (user, source_reference) twice persists exactly one
// grant and both calls report success.
func TestApply_Idempotent(t *testing.T) {
	store := newMockCreditStore()
	svc := newGrantService(store)

	first, err := svc.Apply(context.Background(), "usr_1", 100, "cs_session_1", nil)
	if err != nil || !first {
		t.Fatalf("first: applied=%v err=%v", first, err)
	}
	second, err := svc.Apply(context.Background(), "usr_1", 100, "cs_session_1", nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second {
		t.Error("second apply should report applied=false")
	}
	if len(store.grants) != 1 {
		t.Errorf("grants = %d, want exactly 1", len(store.grants))
	}
}

func TestApply_ConcurrentDuplicates(t *testing.T) {
	store := newMockCreditStore()
	svc := newGrantService(store)

	var wg sync.WaitGroup
	appliedCount := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := svc.Apply(context.Background(), "usr_1", 100, "cs_retry", nil)
			if err != nil {
				t.Errorf("Apply: %v", err)
				return
			}
			appliedCount <- applied
		}()
	}
	wg.Wait()
	close(appliedCount)

	wins := 0
	for a := range appliedCount {
		if a {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("applied wins = %d, want exactly 1", wins)
	}
	if len(store.grants) != 1 {
		t.Errorf("grants = %d, want 1", len(store.grants))
	}
}

func TestApply_Validation(t *testing.T) {
	svc := newGrantService(newMockCreditStore())

	if _, err := svc.Apply(context.Background(), "usr_1", 0, "cs_1", nil); err == nil {
		t.Error("zero amount should fail")
	}
	if _, err := svc.Apply(context.Background(), "usr_1", -5, "cs_1", nil); err == nil {
		t.Error("negative amount should fail")
	}
	if _, err := svc.Apply(context.Background(), "", 10, "cs_1", nil); err == nil {
		t.Error("missing user should fail")
	}
	if _, err := svc.Apply(context.Background(), "usr_1", 10, "", nil); err == nil {
		t.Error("missing source reference should fail")
	}
}

func TestApply_StoreDown(t *testing.T) {
	store := newMockCreditStore()
	store.insertErr = errors.New("connection refused")
	svc := newGrantService(store)

	_, err := svc.Apply(context.Background(), "usr_1", 10, "cs_1", nil)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
}
