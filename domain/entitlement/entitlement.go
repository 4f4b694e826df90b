// Package entitlement decides whether an identity may run a generation.
// The decision is a pure function over the identity, its plan, the month's
// usage aggregate, and the cached subscription record.
package entitlement

import (
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/plan"
	"github.com/gengate/gengate/domain/usage"
)

// Reason is a stable machine-readable denial code.
type Reason string

const (
	ReasonAccountDeactivated   Reason = "account_deactivated"
	ReasonMonthlyLimitReached  Reason = "monthly_limit_reached"
	ReasonSubscriptionExpired  Reason = "subscription_expired"
	ReasonSubscriptionInactive Reason = "subscription_inactive"
	ReasonInsufficientCredits  Reason = "insufficient_credits"
)

// Details carries the numeric context a client needs to render actionable
// messaging. CreditsRemaining is floored at zero for display.
type Details struct {
	MonthlyLimit     int
	GenerationsUsed  int64
	CreditsTotal     int64
	CreditsUsed      int64
	CreditsNeeded    int64
	CreditsRemaining int64
}

// Decision is the outcome of an entitlement evaluation (value type).
type Decision struct {
	Allowed bool
	Reason  Reason // set only when denied
	Details Details
}

// Input gathers everything Evaluate needs. The subscription is nil when the
// user has no cached record.
type Input struct {
	Identity      identity.Identity
	Plan          plan.Plan
	Usage         usage.Summary
	Subscription  *billing.Subscription
	Operation     credit.Operation
	PerSecondRate float64 // system-wide video credit rate
	Now           time.Time
}

// Evaluate runs the four checks in fixed order, short-circuiting on the
// first denial: active flag, monthly count limit, subscription validity
// (paid plans only), credit balance. It performs no I/O.
// This is a PURE function.
func Evaluate(in Input) Decision {
	needed := credit.Cost(in.Operation, in.PerSecondRate)
	remaining := in.Plan.CreditAllowance - in.Usage.CreditsUsed
	if remaining < 0 {
		remaining = 0
	}

	d := Details{
		MonthlyLimit:     in.Plan.MonthlyGenerationLimit,
		GenerationsUsed:  in.Usage.Count,
		CreditsTotal:     in.Plan.CreditAllowance,
		CreditsUsed:      in.Usage.CreditsUsed,
		CreditsNeeded:    needed,
		CreditsRemaining: remaining,
	}

	if !in.Identity.IsActive {
		return Decision{Reason: ReasonAccountDeactivated, Details: d}
	}

	if in.Usage.Count >= int64(in.Plan.MonthlyGenerationLimit) {
		return Decision{Reason: ReasonMonthlyLimitReached, Details: d}
	}

	// Paid plans require a valid subscription when a record exists. A paid
	// plan with no record passes: transitional grace between checkout and
	// the first reconciliation.
	if !in.Plan.IsFree() && in.Subscription != nil && !in.Subscription.ValidAt(in.Now) {
		reason := ReasonSubscriptionInactive
		if in.Subscription.Status == billing.SubscriptionStatusActive {
			// Active but scheduled to cancel with the period elapsed.
			reason = ReasonSubscriptionExpired
		}
		return Decision{Reason: reason, Details: d}
	}

	// Boundary is inclusive: exactly enough credits is allowed.
	if in.Plan.CreditAllowance-in.Usage.CreditsUsed < needed {
		return Decision{Reason: ReasonInsufficientCredits, Details: d}
	}

	d.CreditsRemaining = in.Plan.CreditAllowance - in.Usage.CreditsUsed - needed
	return Decision{Allowed: true, Details: d}
}
