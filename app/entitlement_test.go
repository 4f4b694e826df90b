package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/entitlement"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/usage"
	"github.com/rs/zerolog"
)

func newEntitlementService(ledger *mockLedgerStore, subs *mockSubscriptionStore) *EntitlementService {
	return NewEntitlementService(ledger, subs, testPlans(), &seqIDGen{}, fakeClock{testNow}, zerolog.Nop())
}

func premiumUser() identity.Identity {
	return identity.Identity{ID: "usr_1", Email: "u@example.com", PlanID: "premium", MonthlyGenerationLimit: 500, IsActive: true}
}

func TestEvaluate_Allowed(t *testing.T) {
	ledger := &mockLedgerStore{summary: usage.Summary{Count: 3, CreditsUsed: 3}}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	d, err := svc.Evaluate(context.Background(), premiumUser(), credit.Operation{Kind: credit.KindImage})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("denied: %+v", d)
	}
	if d.Details.CreditsRemaining != 96 {
		t.Errorf("remaining = %d, want 96", d.Details.CreditsRemaining)
	}
}

func TestEvaluate_UsesSubscriptionRecord(t *testing.T) {
	ledger := &mockLedgerStore{summary: usage.Summary{Count: 3, CreditsUsed: 3}}
	subs := newMockSubscriptionStore()
	subs.active = &billing.Subscription{
		UserID:            "usr_1",
		Status:            billing.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  testNow.Add(-time.Hour),
	}
	svc := newEntitlementService(ledger, subs)

	d, err := svc.Evaluate(context.Background(), premiumUser(), credit.Operation{Kind: credit.KindImage})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed || d.Reason != entitlement.ReasonSubscriptionExpired {
		t.Errorf("decision = %+v, want subscription_expired", d)
	}
}

func TestEvaluate_FreePlanSkipsSubscriptionLookup(t *testing.T) {
	ledger := &mockLedgerStore{summary: usage.Summary{Count: 1, CreditsUsed: 1}}
	subs := newMockSubscriptionStore()
	svc := newEntitlementService(ledger, subs)

	user := identity.Identity{ID: "usr_2", PlanID: "free", IsActive: true}
	d, err := svc.Evaluate(context.Background(), user, credit.Operation{Kind: credit.KindImage})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Errorf("decision = %+v, want allowed", d)
	}
}

// A ledger failure must never become an allow.
func TestEvaluate_LedgerFailureIsNotAllow(t *testing.T) {
	ledger := &mockLedgerStore{sumErr: errors.New("connection refused")}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	_, err := svc.Evaluate(context.Background(), premiumUser(), credit.Operation{Kind: credit.KindImage})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
}

func TestEvaluate_UnknownPlanFallsBackToDefault(t *testing.T) {
	ledger := &mockLedgerStore{summary: usage.Summary{Count: 10, CreditsUsed: 10}}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	user := identity.Identity{ID: "usr_3", PlanID: "legacy_gold", IsActive: true}
	d, err := svc.Evaluate(context.Background(), user, credit.Operation{Kind: credit.KindImage})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// Default free plan: limit 10 already consumed.
	if d.Allowed || d.Reason != entitlement.ReasonMonthlyLimitReached {
		t.Errorf("decision = %+v, want monthly_limit_reached on default plan", d)
	}
}

func TestRecordCompleted(t *testing.T) {
	ledger := &mockLedgerStore{}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	op := credit.Operation{Kind: credit.KindVideo, VideoDurationSeconds: 8}
	if err := svc.RecordCompleted(context.Background(), "usr_1", op); err != nil {
		t.Fatalf("RecordCompleted: %v", err)
	}

	if len(ledger.events) != 1 {
		t.Fatalf("events = %d, want 1", len(ledger.events))
	}
	e := ledger.events[0]
	if e.Status != usage.StatusCompleted || e.Kind != credit.KindVideo || e.VideoDurationSeconds != 8 {
		t.Errorf("event = %+v", e)
	}
	if !e.OccurredAt.Equal(testNow) {
		t.Errorf("occurred_at = %v, want clock time", e.OccurredAt)
	}
}

func TestRecordFailed(t *testing.T) {
	ledger := &mockLedgerStore{}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	if err := svc.RecordFailed(context.Background(), "usr_1", credit.Operation{Kind: credit.KindImage}); err != nil {
		t.Fatalf("RecordFailed: %v", err)
	}
	if len(ledger.events) != 1 || ledger.events[0].Status != usage.StatusFailed {
		t.Errorf("events = %+v", ledger.events)
	}
}

func TestUsage(t *testing.T) {
	ledger := &mockLedgerStore{summary: usage.Summary{Count: 7, CreditsUsed: 12}}
	svc := newEntitlementService(ledger, newMockSubscriptionStore())

	summary, p, err := svc.Usage(context.Background(), premiumUser())
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if summary.Count != 7 || summary.CreditsUsed != 12 {
		t.Errorf("summary = %+v", summary)
	}
	if p.ID != "premium" {
		t.Errorf("plan = %+v", p)
	}
}
