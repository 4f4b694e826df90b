package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/plan"
	"github.com/gengate/gengate/domain/usage"
	"github.com/gengate/gengate/ports"
)

// Mock implementations for testing

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id_%d", g.n)
}

// staticPlans implements PlanSource over a fixed catalog.
type staticPlans struct {
	catalog plan.Catalog
	rate    float64
}

func (s staticPlans) Catalog() plan.Catalog    { return s.catalog }
func (s staticPlans) VideoCreditRate() float64 { return s.rate }

func testPlans() staticPlans {
	return staticPlans{
		catalog: plan.NewCatalog([]plan.Plan{
			{ID: "free", Name: "Free", TierRank: 0, MonthlyGenerationLimit: 10, CreditAllowance: 10, IsDefault: true},
			{ID: "starter", Name: "Starter", TierRank: 1, MonthlyGenerationLimit: 100, CreditAllowance: 50, StripePriceID: "price_starter"},
			{ID: "premium", Name: "Premium", TierRank: 2, MonthlyGenerationLimit: 500, CreditAllowance: 100, StripePriceID: "price_premium"},
			{ID: "enterprise", Name: "Enterprise", TierRank: 3, MonthlyGenerationLimit: 5000, CreditAllowance: 1000, StripePriceID: "price_enterprise"},
		}),
		rate: 0.5,
	}
}

type mockProfileStore struct {
	mu        sync.Mutex
	profiles  map[string]identity.Identity
	createErr error
	updateErr error
	getErr    error
	creates   int
	updates   int
}

func newMockProfileStore(ids ...identity.Identity) *mockProfileStore {
	m := &mockProfileStore{profiles: make(map[string]identity.Identity)}
	for _, id := range ids {
		m.profiles[id.ID] = id
	}
	return m
}

func (m *mockProfileStore) Get(ctx context.Context, id string) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return identity.Identity{}, m.getErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return identity.Identity{}, ports.ErrNotFound
	}
	return p, nil
}

func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return identity.Identity{}, ports.ErrNotFound
}

func (m *mockProfileStore) Create(ctx context.Context, id identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.profiles[id.ID]; exists {
		return ports.ErrDuplicate
	}
	m.profiles[id.ID] = id
	return nil
}

func (m *mockProfileStore) Update(ctx context.Context, id identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.profiles[id.ID]; !exists {
		return ports.ErrNotFound
	}
	m.profiles[id.ID] = id
	return nil
}

type mockLedgerStore struct {
	mu      sync.Mutex
	summary usage.Summary
	sumErr  error
	events  []usage.Event
	recErr  error
}

func (m *mockLedgerStore) Record(ctx context.Context, e usage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recErr != nil {
		return m.recErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockLedgerStore) SumCompletedThisMonth(ctx context.Context, userID string, start, end time.Time, rate float64) (usage.Summary, error) {
	if m.sumErr != nil {
		return usage.Summary{}, m.sumErr
	}
	s := m.summary
	s.UserID = userID
	s.PeriodStart = start
	s.PeriodEnd = end
	return s, nil
}

type mockSubscriptionStore struct {
	mu         sync.Mutex
	active     *billing.Subscription
	byExternal map[string]billing.Subscription
	upsertErr  error
	markErr    error
	canceled   int64
}

func newMockSubscriptionStore() *mockSubscriptionStore {
	return &mockSubscriptionStore{byExternal: make(map[string]billing.Subscription)}
}

func (m *mockSubscriptionStore) MostRecentActive(ctx context.Context, userID string) (billing.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.UserID != userID {
		return billing.Subscription{}, ports.ErrNotFound
	}
	return *m.active, nil
}

func (m *mockSubscriptionStore) UpsertByExternalID(ctx context.Context, sub billing.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.byExternal[sub.ExternalID]; ok {
		// Keep the original row identity, update billing fields.
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	m.byExternal[sub.ExternalID] = sub
	return nil
}

func (m *mockSubscriptionStore) MarkCanceledByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return 0, m.markErr
	}
	var n int64
	for k, s := range m.byExternal {
		if s.UserID == userID && s.Status != billing.SubscriptionStatusCanceled {
			s.Status = billing.SubscriptionStatusCanceled
			s.CanceledAt = &at
			m.byExternal[k] = s
			n++
		}
	}
	m.canceled += n
	return n, nil
}

type mockCreditStore struct {
	mu        sync.Mutex
	grants    map[string]credit.Grant // keyed by user|source
	insertErr error
}

func newMockCreditStore() *mockCreditStore {
	return &mockCreditStore{grants: make(map[string]credit.Grant)}
}

func (m *mockCreditStore) InsertGrantIfAbsent(ctx context.Context, g credit.Grant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	key := g.UserID + "|" + g.SourceReference
	if _, exists := m.grants[key]; exists {
		return false, nil
	}
	m.grants[key] = g
	return true, nil
}

type mockBillingProvider struct {
	subs    []billing.ExternalSubscription
	listErr error
	prices  map[string]billing.PriceMetadata
	metaErr error
}

func (m *mockBillingProvider) ListActiveSubscriptions(ctx context.Context, customerRef string) ([]billing.ExternalSubscription, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.subs, nil
}

func (m *mockBillingProvider) GetPriceMetadata(ctx context.Context, priceID string) (billing.PriceMetadata, error) {
	if m.metaErr != nil {
		return billing.PriceMetadata{}, m.metaErr
	}
	meta, ok := m.prices[priceID]
	if !ok {
		return billing.PriceMetadata{}, errors.New("price not found")
	}
	return meta, nil
}

type mockLocalVerifier struct {
	claims ports.LocalClaims
	err    error
}

func (m mockLocalVerifier) Verify(credential string) (ports.LocalClaims, error) {
	if m.err != nil {
		return ports.LocalClaims{}, m.err
	}
	return m.claims, nil
}

type mockExternalVerifier struct {
	subject ports.ExternalSubject
	err     error
}

func (m mockExternalVerifier) Verify(ctx context.Context, credential string) (ports.ExternalSubject, error) {
	if m.err != nil {
		return ports.ExternalSubject{}, m.err
	}
	return m.subject, nil
}
