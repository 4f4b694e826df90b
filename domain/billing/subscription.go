// Package billing provides subscription value types and pure reconciliation
// decisions. The external billing system is authoritative and is only read.
package billing

import "time"

// SubscriptionStatus represents subscription state as reported by the
// billing system.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// Subscription represents a locally cached billing subscription (value type).
// At most one row per ExternalID; the most recently created active row is
// authoritative for a user.
type Subscription struct {
	ID                 string
	UserID             string
	PlanID             string
	ExternalID         string // subscription ID in the billing system
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ValidAt reports whether the subscription still grants entitlements at the
// given instant: status active AND (not scheduled to cancel OR the paid
// period has not elapsed).
func (s Subscription) ValidAt(now time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if !s.CancelAtPeriodEnd {
		return true
	}
	return s.CurrentPeriodEnd.After(now)
}

// ExternalSubscription is the billing system's live view of a subscription.
type ExternalSubscription struct {
	ID                 string
	CustomerRef        string
	PriceID            string
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// PriceMetadata is the plan mapping attached to a billing price.
type PriceMetadata struct {
	PlanID string
}
