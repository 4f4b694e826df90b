// Package metrics provides Prometheus metrics collection for Gengate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for Gengate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Entitlement metrics
	DecisionsTotal *prometheus.CounterVec
	CreditsCharged *prometheus.CounterVec

	// Reconciliation metrics
	ReconcileOutcomes *prometheus.CounterVec
	ReconcileErrors   prometheus.Counter

	// Credit grant metrics
	GrantsApplied    prometheus.Counter
	GrantsDuplicate  prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return build(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return build(promauto.With(reg))
}

func build(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gengate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gengate",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"scheme"},
		),

		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "entitlement_decisions_total",
				Help:      "Entitlement decisions by outcome and denial reason",
			},
			[]string{"allowed", "reason", "plan_id"},
		),
		CreditsCharged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "credits_charged_total",
				Help:      "Total credits charged for completed generations",
			},
			[]string{"kind", "plan_id"},
		),

		ReconcileOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "reconcile_outcomes_total",
				Help:      "Subscription reconciliation runs by outcome",
			},
			[]string{"outcome"},
		),
		ReconcileErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "reconcile_errors_total",
				Help:      "Total number of failed reconciliation runs",
			},
		),

		GrantsApplied: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "credit_grants_applied_total",
				Help:      "Credit grants persisted",
			},
		),
		GrantsDuplicate: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "credit_grants_duplicate_total",
				Help:      "Credit grants dropped as duplicates of an earlier delivery",
			},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gengate",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gengate",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}
