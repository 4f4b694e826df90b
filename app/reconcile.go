package app

import (
	"context"
	"fmt"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
	"github.com/rs/zerolog"
)

// ReconcileResult is the outcome of a reconciliation run.
type ReconcileResult struct {
	Outcome billing.Outcome
	Record  *billing.Subscription // upserted record, when one was written
}

// ReconcileService aligns the locally cached subscription state with the
// billing system's authoritative view. The billing system is only read.
// Re-running with unchanged external state converges to identical records.
type ReconcileService struct {
	profiles      ports.ProfileStore
	subscriptions ports.SubscriptionStore
	provider      ports.BillingProvider
	plans         PlanSource
	idGen         ports.IDGenerator
	clock         ports.Clock
	logger        zerolog.Logger
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(
	profiles ports.ProfileStore,
	subscriptions ports.SubscriptionStore,
	provider ports.BillingProvider,
	plans PlanSource,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		profiles:      profiles,
		subscriptions: subscriptions,
		provider:      provider,
		plans:         plans,
		idGen:         idGen,
		clock:         clock,
		logger:        logger,
	}
}

// Reconcile fetches the customer's live subscriptions, decides the outcome
// from tier ranks, and applies it: plan updates on the profile plus a
// single atomic record upsert keyed by the external subscription ID.
func (s *ReconcileService) Reconcile(ctx context.Context, id identity.Identity, customerRef string) (ReconcileResult, error) {
	external, err := s.provider.ListActiveSubscriptions(ctx, customerRef)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: list subscriptions: %v", ErrDependencyUnavailable, err)
	}

	catalog := s.plans.Catalog()
	localRank := catalog.TierRank(id.PlanID)

	if len(external) == 0 {
		return s.reconcileWithoutExternal(ctx, id, localRank)
	}

	// The most recent active subscription is authoritative.
	live := external[0]
	meta, err := s.provider.GetPriceMetadata(ctx, live.PriceID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: price %s: %v", ErrPlanResolution, live.PriceID, err)
	}
	externalPlan, ok := catalog.Find(meta.PlanID)
	if !ok {
		// Fall back to the catalog's own price mapping before giving up.
		externalPlan, ok = catalog.ByStripePrice(live.PriceID)
	}
	if !ok {
		return ReconcileResult{}, fmt.Errorf("%w: price %s maps to unknown plan %q", ErrPlanResolution, live.PriceID, meta.PlanID)
	}

	outcome := billing.Decide(localRank, externalPlan.TierRank, id.Role.IsElevated(), true)

	now := s.clock.Now().UTC()
	record := billing.Subscription{
		ID:                 s.idGen.New(),
		UserID:             id.ID,
		PlanID:             externalPlan.ID,
		ExternalID:         live.ID,
		Status:             live.Status,
		CurrentPeriodStart: live.CurrentPeriodStart,
		CurrentPeriodEnd:   live.CurrentPeriodEnd,
		CancelAtPeriodEnd:  live.CancelAtPeriodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if outcome == billing.OutcomeSynced {
		id.PlanID = externalPlan.ID
		id.MonthlyGenerationLimit = externalPlan.MonthlyGenerationLimit
		id.UpdatedAt = now
		if err := s.profiles.Update(ctx, id); err != nil {
			return ReconcileResult{}, fmt.Errorf("%w: update profile: %v", ErrReconcilePersistence, err)
		}
	}

	// Period tracking stays current even when the local plan wins.
	if err := s.subscriptions.UpsertByExternalID(ctx, record); err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: upsert %s: %v", ErrReconcilePersistence, record.ExternalID, err)
	}

	s.logger.Info().
		Str("user_id", id.ID).
		Str("external_id", live.ID).
		Str("plan_id", externalPlan.ID).
		Str("outcome", string(outcome)).
		Msg("subscription reconciled")

	return ReconcileResult{Outcome: outcome, Record: &record}, nil
}

// reconcileWithoutExternal handles the no-active-subscription branch:
// elevated roles and manually raised plans are preserved, everyone else is
// reset to the free tier. Local rows are marked canceled either way.
func (s *ReconcileService) reconcileWithoutExternal(ctx context.Context, id identity.Identity, localRank int) (ReconcileResult, error) {
	now := s.clock.Now().UTC()
	outcome := billing.Decide(localRank, 0, id.Role.IsElevated(), false)

	if outcome == billing.OutcomeResetToFree {
		free, ok := s.plans.Catalog().Default()
		if !ok {
			return ReconcileResult{}, fmt.Errorf("%w: no default plan configured", ErrPlanResolution)
		}
		id.PlanID = free.ID
		id.MonthlyGenerationLimit = free.MonthlyGenerationLimit
		id.UpdatedAt = now
		if err := s.profiles.Update(ctx, id); err != nil {
			return ReconcileResult{}, fmt.Errorf("%w: update profile: %v", ErrReconcilePersistence, err)
		}
	}

	if _, err := s.subscriptions.MarkCanceledByUser(ctx, id.ID, now); err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: mark canceled: %v", ErrReconcilePersistence, err)
	}

	s.logger.Info().
		Str("user_id", id.ID).
		Str("outcome", string(outcome)).
		Msg("no active external subscription")

	return ReconcileResult{Outcome: outcome}, nil
}
