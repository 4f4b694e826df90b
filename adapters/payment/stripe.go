// Package payment provides the Stripe billing adapter. Stripe is
// authoritative for subscription state; this adapter only reads.
package payment

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/price"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/gengate/gengate/domain/billing"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// StripeProvider implements ports.BillingProvider for Stripe.
type StripeProvider struct {
	config StripeConfig
}

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(config StripeConfig) *StripeProvider {
	stripe.Key = config.SecretKey
	return &StripeProvider{config: config}
}

// ListActiveSubscriptions returns the customer's live subscriptions in
// active or trialing state, most recent first. Stripe already orders list
// results newest-first.
func (p *StripeProvider) ListActiveSubscriptions(ctx context.Context, customerRef string) ([]billing.ExternalSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerRef),
	}
	params.Context = ctx

	var subs []billing.ExternalSubscription
	iter := subscription.List(params)
	for iter.Next() {
		s := iter.Subscription()
		status := mapStripeStatus(s.Status)
		if status != billing.SubscriptionStatusActive && status != billing.SubscriptionStatusTrialing {
			continue
		}
		ext := billing.ExternalSubscription{
			ID:                 s.ID,
			CustomerRef:        customerRef,
			Status:             status,
			CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0).UTC(),
			CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0).UTC(),
			CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		}
		if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
			ext.PriceID = s.Items.Data[0].Price.ID
		}
		subs = append(subs, ext)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetPriceMetadata resolves the plan mapping attached to a price.
func (p *StripeProvider) GetPriceMetadata(ctx context.Context, priceID string) (billing.PriceMetadata, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	pr, err := price.Get(priceID, params)
	if err != nil {
		return billing.PriceMetadata{}, err
	}
	return billing.PriceMetadata{PlanID: pr.Metadata["plan_id"]}, nil
}

// VerifyWebhook validates a webhook payload signature and returns the event.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, p.config.WebhookSecret)
}

func mapStripeStatus(status stripe.SubscriptionStatus) billing.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return billing.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return billing.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return billing.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return billing.SubscriptionStatusUnpaid
	case stripe.SubscriptionStatusTrialing:
		return billing.SubscriptionStatusTrialing
	default:
		return billing.SubscriptionStatusCanceled
	}
}
