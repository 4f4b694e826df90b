package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/entitlement"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/plan"
	"github.com/gengate/gengate/domain/usage"
	"github.com/gengate/gengate/ports"
	"github.com/rs/zerolog"
)

// EntitlementService evaluates whether an identity may run a generation.
// Evaluate performs no writes; the caller records the consumption event
// only after the gated operation itself succeeds.
type EntitlementService struct {
	ledger        ports.LedgerStore
	subscriptions ports.SubscriptionStore
	plans         PlanSource
	idGen         ports.IDGenerator
	clock         ports.Clock
	logger        zerolog.Logger
}

// NewEntitlementService creates an entitlement service.
func NewEntitlementService(
	ledger ports.LedgerStore,
	subscriptions ports.SubscriptionStore,
	plans PlanSource,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *EntitlementService {
	return &EntitlementService{
		ledger:        ledger,
		subscriptions: subscriptions,
		plans:         plans,
		idGen:         idGen,
		clock:         clock,
		logger:        logger,
	}
}

// Evaluate gathers the month's ledger aggregate and the cached subscription
// record, then runs the pure entitlement decision. Store failures surface
// as ErrDependencyUnavailable, never as an allow.
func (s *EntitlementService) Evaluate(ctx context.Context, id identity.Identity, op credit.Operation) (entitlement.Decision, error) {
	p := s.planFor(id)
	now := s.clock.Now().UTC()
	start, end := usage.MonthWindow(now)
	rate := s.plans.VideoCreditRate()

	summary, err := s.ledger.SumCompletedThisMonth(ctx, id.ID, start, end, rate)
	if err != nil {
		return entitlement.Decision{}, fmt.Errorf("%w: usage aggregate: %v", ErrDependencyUnavailable, err)
	}

	var sub *billing.Subscription
	if !p.IsFree() {
		rec, err := s.subscriptions.MostRecentActive(ctx, id.ID)
		switch {
		case err == nil:
			sub = &rec
		case errors.Is(err, ports.ErrNotFound):
			// Transitional grace: a paid plan with no record passes.
		default:
			return entitlement.Decision{}, fmt.Errorf("%w: subscription lookup: %v", ErrDependencyUnavailable, err)
		}
	}

	decision := entitlement.Evaluate(entitlement.Input{
		Identity:      id,
		Plan:          p,
		Usage:         summary,
		Subscription:  sub,
		Operation:     op,
		PerSecondRate: rate,
		Now:           now,
	})

	if !decision.Allowed {
		s.logger.Info().
			Str("user_id", id.ID).
			Str("plan_id", p.ID).
			Str("reason", string(decision.Reason)).
			Int64("credits_used", decision.Details.CreditsUsed).
			Int64("credits_needed", decision.Details.CreditsNeeded).
			Msg("generation denied")
	}
	return decision, nil
}

// RecordCompleted appends a completed consumption event. Called by the
// request handler after the generation itself succeeded.
func (s *EntitlementService) RecordCompleted(ctx context.Context, userID string, op credit.Operation) error {
	e := usage.Event{
		ID:                   s.idGen.New(),
		UserID:               userID,
		Kind:                 op.Kind,
		VideoDurationSeconds: op.VideoDurationSeconds,
		Status:               usage.StatusCompleted,
		OccurredAt:           s.clock.Now().UTC(),
	}
	if err := s.ledger.Record(ctx, e); err != nil {
		return fmt.Errorf("%w: record event: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// RecordFailed appends a failed event for audit. Failed events never count
// toward usage.
func (s *EntitlementService) RecordFailed(ctx context.Context, userID string, op credit.Operation) error {
	e := usage.Event{
		ID:                   s.idGen.New(),
		UserID:               userID,
		Kind:                 op.Kind,
		VideoDurationSeconds: op.VideoDurationSeconds,
		Status:               usage.StatusFailed,
		OccurredAt:           s.clock.Now().UTC(),
	}
	if err := s.ledger.Record(ctx, e); err != nil {
		return fmt.Errorf("%w: record event: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// Usage returns the identity's current month aggregate alongside its plan,
// for display.
func (s *EntitlementService) Usage(ctx context.Context, id identity.Identity) (usage.Summary, plan.Plan, error) {
	p := s.planFor(id)
	start, end := usage.MonthWindow(s.clock.Now().UTC())
	summary, err := s.ledger.SumCompletedThisMonth(ctx, id.ID, start, end, s.plans.VideoCreditRate())
	if err != nil {
		return usage.Summary{}, plan.Plan{}, fmt.Errorf("%w: usage aggregate: %v", ErrDependencyUnavailable, err)
	}
	return summary, p, nil
}

// planFor resolves the identity's plan, falling back to the default when
// the stored plan ID is no longer in the catalog.
func (s *EntitlementService) planFor(id identity.Identity) plan.Plan {
	catalog := s.plans.Catalog()
	if p, ok := catalog.Find(id.PlanID); ok {
		return p
	}
	if def, ok := catalog.Default(); ok {
		s.logger.Warn().
			Str("user_id", id.ID).
			Str("plan_id", id.PlanID).
			Msg("unknown plan on profile, using default")
		return def
	}
	return plan.Plan{ID: id.PlanID, MonthlyGenerationLimit: id.MonthlyGenerationLimit}
}
