package payment

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v76"

	"github.com/gengate/gengate/domain/billing"
)

// NoopProvider is a billing provider for dev mode: no customer ever has a
// live subscription, and webhooks skip signature verification.
type NoopProvider struct{}

// NewNoopProvider creates a no-op billing provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// ListActiveSubscriptions always returns no subscriptions.
func (p *NoopProvider) ListActiveSubscriptions(ctx context.Context, customerRef string) ([]billing.ExternalSubscription, error) {
	return nil, nil
}

// GetPriceMetadata returns an empty mapping.
func (p *NoopProvider) GetPriceMetadata(ctx context.Context, priceID string) (billing.PriceMetadata, error) {
	return billing.PriceMetadata{}, nil
}

// VerifyWebhook parses the payload without checking the signature.
// Dev mode only; never wire this into a deployment that faces Stripe.
func (p *NoopProvider) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}
