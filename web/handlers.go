package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gengate/gengate/app"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/entitlement"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
)

// GenerateImage gates and runs an image generation. One image costs one
// credit; the consumption event is recorded only after the generation
// itself succeeds.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, credit.Operation{Kind: credit.KindImage})
}

// GenerateVideo gates and runs a video generation.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DurationSeconds float64 `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DurationSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "duration_seconds must be positive")
		return
	}

	h.generate(w, r, credit.Operation{
		Kind:                 credit.KindVideo,
		VideoDurationSeconds: req.DurationSeconds,
	})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, op credit.Operation) {
	ctx := r.Context()
	id, ok := identityFrom(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return
	}

	decision, err := h.entitlements.Evaluate(ctx, id, op)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", id.ID).Msg("entitlement evaluation failed")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	if h.metrics != nil {
		allowed := "false"
		if decision.Allowed {
			allowed = "true"
		}
		h.metrics.DecisionsTotal.WithLabelValues(allowed, string(decision.Reason), id.PlanID).Inc()
	}

	if !decision.Allowed {
		writeDenial(w, string(decision.Reason), denialDetail(decision))
		return
	}

	resultRef, err := h.generator.Generate(ctx, id.ID, op)
	if err != nil {
		// Failed generations are recorded for audit but never billed.
		if recErr := h.entitlements.RecordFailed(ctx, id.ID, op); recErr != nil {
			h.logger.Error().Err(recErr).Str("user_id", id.ID).Msg("failed-event record failed")
		}
		h.logger.Error().Err(err).Str("user_id", id.ID).Msg("generation failed")
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	if err := h.entitlements.RecordCompleted(ctx, id.ID, op); err != nil {
		// The user got their output; log the billing gap loudly instead of
		// failing the response.
		h.logger.Error().Err(err).Str("user_id", id.ID).Msg("completed-event record failed")
	}
	if h.metrics != nil {
		h.metrics.CreditsCharged.WithLabelValues(string(op.Kind), id.PlanID).
			Add(float64(decision.Details.CreditsNeeded))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":            resultRef,
		"credits_charged":   decision.Details.CreditsNeeded,
		"credits_remaining": decision.Details.CreditsRemaining,
	})
}

func denialDetail(d entitlement.Decision) map[string]any {
	detail := map[string]any{
		"monthly_limit":    d.Details.MonthlyLimit,
		"generations_used": d.Details.GenerationsUsed,
	}
	switch d.Reason {
	case entitlement.ReasonInsufficientCredits:
		detail["credits_total"] = d.Details.CreditsTotal
		detail["credits_used"] = d.Details.CreditsUsed
		detail["credits_needed"] = d.Details.CreditsNeeded
		detail["credits_remaining"] = d.Details.CreditsRemaining
	}
	return detail
}

// Me returns the caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id.ID,
		"email":     id.Email,
		"role":      id.Role.String(),
		"plan_id":   id.PlanID,
		"is_active": id.IsActive,
	})
}

// MyUsage returns the caller's current-month aggregate alongside plan limits.
func (h *Handler) MyUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := identityFrom(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return
	}

	summary, p, err := h.entitlements.Usage(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", id.ID).Msg("usage lookup failed")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period_start":      summary.PeriodStart.Format(time.RFC3339),
		"period_end":        summary.PeriodEnd.Format(time.RFC3339),
		"generations_used":  summary.Count,
		"monthly_limit":     p.MonthlyGenerationLimit,
		"credits_used":      summary.CreditsUsed,
		"credit_allowance":  p.CreditAllowance,
		"credits_remaining": max64(p.CreditAllowance-summary.CreditsUsed, 0),
	})
}

// Resync reconciles the caller's cached subscription state against the
// billing system.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return
	}
	h.resync(w, r, id)
}

// AdminResync reconciles an arbitrary user's subscription state. Admin only.
func (h *Handler) AdminResync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	target, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("profile lookup failed")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	h.resync(w, r, target)
}

func (h *Handler) resync(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	if id.StripeCustomerID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"outcome": "no_billing_customer"})
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), id, id.StripeCustomerID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", id.ID).Msg("reconciliation failed")
		if h.metrics != nil {
			h.metrics.ReconcileErrors.Inc()
		}
		switch {
		case errors.Is(err, app.ErrPlanResolution):
			writeError(w, http.StatusConflict, "plan resolution failed")
		default:
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.ReconcileOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	}

	resp := map[string]any{"outcome": string(result.Outcome)}
	if result.Record != nil {
		resp["plan_id"] = result.Record.PlanID
		resp["current_period_end"] = result.Record.CurrentPeriodEnd.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
