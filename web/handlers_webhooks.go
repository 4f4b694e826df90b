package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

const maxWebhookBody = 1 << 20 // Stripe events are small; cap reads at 1 MiB

// StripeWebhook handles billing events. Delivery is at-least-once: credit
// grants ride the (user, source reference) uniqueness constraint, and
// reconciliation converges, so replays are harmless.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := h.verifier.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid webhook signature")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(w, r, event.Data.Raw)
	case "customer.subscription.updated", "customer.subscription.deleted":
		h.handleSubscriptionChanged(w, r, event.Data.Raw)
	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// handleCheckoutCompleted applies a credit purchase: one idempotent grant
// keyed by the checkout session ID, then a reconcile pass so a bundled
// subscription lands in the same delivery.
func (h *Handler) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var session struct {
		ID       string            `json:"id"`
		Customer string            `json:"customer"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		h.logger.Warn().Str("session_id", session.ID).Msg("checkout session without user_id metadata")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if creditsStr := session.Metadata["credits"]; creditsStr != "" {
		amount, err := strconv.ParseInt(creditsStr, 10, 64)
		if err != nil || amount <= 0 {
			h.logger.Warn().Str("session_id", session.ID).Str("credits", creditsStr).Msg("unparseable credits metadata")
		} else {
			applied, err := h.grants.Apply(r.Context(), userID, amount, session.ID, nil)
			if err != nil {
				h.logger.Error().Err(err).Str("session_id", session.ID).Msg("credit grant failed")
				writeError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			if h.metrics != nil {
				if applied {
					h.metrics.GrantsApplied.Inc()
				} else {
					h.metrics.GrantsDuplicate.Inc()
				}
			}
		}
	}

	h.reconcileForWebhook(r, userID, session.Customer)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubscriptionChanged re-reads the customer's live state rather than
// trusting the event payload, then reconciles.
func (h *Handler) handleSubscriptionChanged(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var sub struct {
		ID       string            `json:"id"`
		Customer string            `json:"customer"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	userID := sub.Metadata["user_id"]
	if userID == "" {
		h.logger.Warn().Str("subscription_id", sub.ID).Msg("subscription event without user_id metadata")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	h.reconcileForWebhook(r, userID, sub.Customer)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reconcileForWebhook runs a best-effort reconcile for the event's user.
// Webhook deliveries are acknowledged even when this fails; the periodic
// resync and login-time checks pick up anything missed.
func (h *Handler) reconcileForWebhook(r *http.Request, userID, customerRef string) {
	ctx := r.Context()

	target, err := h.profiles.Get(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("webhook references unknown user")
		return
	}

	if customerRef == "" {
		customerRef = target.StripeCustomerID
	}
	if customerRef == "" {
		return
	}

	// First sight of the billing customer: remember the mapping.
	if target.StripeCustomerID == "" {
		target.StripeCustomerID = customerRef
		if err := h.profiles.Update(ctx, target); err != nil {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to store billing customer ref")
		}
	}

	result, err := h.reconciler.Reconcile(ctx, target, customerRef)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("webhook reconcile failed")
		if h.metrics != nil {
			h.metrics.ReconcileErrors.Inc()
		}
		return
	}
	if h.metrics != nil {
		h.metrics.ReconcileOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	}
}
