// Package web provides the JSON HTTP surface. Transport glue only: every
// decision lives in app/ and domain/.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"

	"github.com/gengate/gengate/adapters/metrics"
	"github.com/gengate/gengate/app"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/entitlement"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/plan"
	"github.com/gengate/gengate/domain/usage"
	"github.com/gengate/gengate/ports"
)

// IdentityResolver resolves a bearer credential to an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (identity.Identity, error)
}

// EntitlementService gates and records generation usage.
type EntitlementService interface {
	Evaluate(ctx context.Context, id identity.Identity, op credit.Operation) (entitlement.Decision, error)
	RecordCompleted(ctx context.Context, userID string, op credit.Operation) error
	RecordFailed(ctx context.Context, userID string, op credit.Operation) error
	Usage(ctx context.Context, id identity.Identity) (usage.Summary, plan.Plan, error)
}

// Reconciler aligns cached subscription state with the billing system.
type Reconciler interface {
	Reconcile(ctx context.Context, id identity.Identity, customerRef string) (app.ReconcileResult, error)
}

// GrantApplier applies credit grants idempotently.
type GrantApplier interface {
	Apply(ctx context.Context, userID string, amount int64, sourceReference string, expiresAt *time.Time) (bool, error)
}

// WebhookVerifier validates webhook payload signatures.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// Generator runs the actual generation work once the gate allows it.
// Implementations live outside this service; dev mode uses a stub.
type Generator interface {
	Generate(ctx context.Context, userID string, op credit.Operation) (resultRef string, err error)
}

// Handler provides the HTTP API endpoints.
type Handler struct {
	resolver     IdentityResolver
	entitlements EntitlementService
	reconciler   Reconciler
	grants       GrantApplier
	profiles     ports.ProfileStore
	verifier     WebhookVerifier
	generator    Generator
	metrics      *metrics.Collector
	logger       zerolog.Logger
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Resolver     IdentityResolver
	Entitlements EntitlementService
	Reconciler   Reconciler
	Grants       GrantApplier
	Profiles     ports.ProfileStore
	Verifier     WebhookVerifier
	Generator    Generator
	Metrics      *metrics.Collector
	Logger       zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		resolver:     deps.Resolver,
		entitlements: deps.Entitlements,
		reconciler:   deps.Reconciler,
		grants:       deps.Grants,
		profiles:     deps.Profiles,
		verifier:     deps.Verifier,
		generator:    deps.Generator,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestMetrics)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhooks/stripe", h.StripeWebhook)

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/generations/image", h.GenerateImage)
		r.Post("/generations/video", h.GenerateVideo)
		r.Get("/me", h.Me)
		r.Get("/me/usage", h.MyUsage)
		r.Post("/billing/resync", h.Resync)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/admin/resync/{userID}", h.AdminResync)
		})
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestMetrics records request counts and latency per route pattern.
func (h *Handler) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		h.metrics.RequestsInFlight.Inc()
		defer h.metrics.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(ww.Status())
		h.metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		h.metrics.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
