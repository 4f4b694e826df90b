package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newResolver(local ports.LocalTokenVerifier, external ports.ExternalTokenVerifier, profiles *mockProfileStore) *IdentityResolver {
	return NewIdentityResolver(local, external, profiles, testPlans(), fakeClock{testNow}, zerolog.Nop())
}

func TestResolve_EmptyCredential(t *testing.T) {
	r := newResolver(mockLocalVerifier{err: errors.New("no")}, mockExternalVerifier{err: errors.New("no")}, newMockProfileStore())

	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolve_LocalTokenSkipsStore(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.getErr = errors.New("store must not be touched")

	r := newResolver(
		mockLocalVerifier{claims: ports.LocalClaims{UserID: "usr_1", Email: "u@example.com", Role: identity.RoleAdmin, PlanID: "premium"}},
		mockExternalVerifier{err: errors.New("no")},
		profiles,
	)

	id, err := r.Resolve(context.Background(), "local-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.ID != "usr_1" || id.Role != identity.RoleAdmin || id.PlanID != "premium" {
		t.Errorf("identity = %+v", id)
	}
	if id.MonthlyGenerationLimit != 500 {
		t.Errorf("limit = %d, want premium limit 500", id.MonthlyGenerationLimit)
	}
}

func TestResolve_BothSchemesReject(t *testing.T) {
	r := newResolver(
		mockLocalVerifier{err: errors.New("bad signature")},
		mockExternalVerifier{err: errors.New("bad token")},
		newMockProfileStore(),
	)

	_, err := r.Resolve(context.Background(), "garbage")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestResolve_ExternalExistingProfile(t *testing.T) {
	existing := identity.Identity{ID: "sub_123", Email: "u@example.com", Role: identity.RoleUser, PlanID: "starter", IsActive: true}
	r := newResolver(
		mockLocalVerifier{err: errors.New("not local")},
		mockExternalVerifier{subject: ports.ExternalSubject{ID: "sub_123", Email: "u@example.com"}},
		newMockProfileStore(existing),
	)

	id, err := r.Resolve(context.Background(), "external-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.PlanID != "starter" {
		t.Errorf("identity = %+v, want stored profile", id)
	}
}

func TestResolve_ProvisionsOnFirstSight(t *testing.T) {
	profiles := newMockProfileStore()
	r := newResolver(
		mockLocalVerifier{err: errors.New("not local")},
		mockExternalVerifier{subject: ports.ExternalSubject{ID: "sub_new", Email: "new@example.com"}},
		profiles,
	)

	id, err := r.Resolve(context.Background(), "external-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.Role != identity.RoleUser || id.PlanID != "free" || !id.IsActive {
		t.Errorf("provisioned identity = %+v, want user/free/active defaults", id)
	}
	if id.MonthlyGenerationLimit != 10 {
		t.Errorf("limit = %d, want free limit 10", id.MonthlyGenerationLimit)
	}
	if _, err := profiles.Get(context.Background(), "sub_new"); err != nil {
		t.Errorf("profile not persisted: %v", err)
	}
}

// Two concurrent first-requests for the same new subject: the loser of the
// insert race re-reads, both observe the same identity, one row exists.
func TestResolve_ConcurrentProvisioning(t *testing.T) {
	profiles := newMockProfileStore()
	r := newResolver(
		mockLocalVerifier{err: errors.New("not local")},
		mockExternalVerifier{subject: ports.ExternalSubject{ID: "sub_race", Email: "race@example.com"}},
		profiles,
	)

	var wg sync.WaitGroup
	results := make([]identity.Identity, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), "external-token")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if results[i].ID != "sub_race" {
			t.Errorf("call %d identity = %+v", i, results[i])
		}
	}
	if len(profiles.profiles) != 1 {
		t.Errorf("profiles persisted = %d, want 1", len(profiles.profiles))
	}
}

// racingProfileStore misses the first lookup and rejects the insert, the
// way a store behaves when another request created the row in between.
type racingProfileStore struct {
	*mockProfileStore
	missedOnce bool
}

func (s *racingProfileStore) Get(ctx context.Context, id string) (identity.Identity, error) {
	if !s.missedOnce {
		s.missedOnce = true
		return identity.Identity{}, ports.ErrNotFound
	}
	return s.mockProfileStore.Get(ctx, id)
}

func (s *racingProfileStore) Create(ctx context.Context, id identity.Identity) error {
	return ports.ErrDuplicate
}

func TestResolve_DuplicateInsertRereads(t *testing.T) {
	winner := identity.Identity{ID: "sub_dup", Email: "dup@example.com", PlanID: "premium", IsActive: true}
	profiles := &racingProfileStore{mockProfileStore: newMockProfileStore(winner)}

	r := NewIdentityResolver(
		mockLocalVerifier{err: errors.New("not local")},
		mockExternalVerifier{subject: ports.ExternalSubject{ID: "sub_dup", Email: "dup@example.com"}},
		profiles, testPlans(), fakeClock{testNow}, zerolog.Nop(),
	)

	id, err := r.Resolve(context.Background(), "external-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.PlanID != "premium" {
		t.Errorf("identity = %+v, want winner's row", id)
	}
}

func TestRequireRole(t *testing.T) {
	admin := identity.Identity{ID: "usr_1", Role: identity.RoleAdmin}

	if err := RequireRole(nil, identity.RoleUser); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("nil identity: err = %v, want ErrUnauthenticated", err)
	}
	if err := RequireRole(&admin, identity.RoleSuperAdmin); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("admin vs super_admin: err = %v, want ErrInsufficientRole", err)
	}
	if err := RequireRole(&admin, identity.RoleAdmin); err != nil {
		t.Errorf("admin vs admin: err = %v, want nil", err)
	}
	if err := RequireRole(&admin, identity.RoleUser); err != nil {
		t.Errorf("admin vs user: err = %v, want nil", err)
	}
}
