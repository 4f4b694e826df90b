// Package bootstrap wires configuration, adapters, services and the HTTP
// surface into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gengate/gengate/adapters/auth"
	"github.com/gengate/gengate/adapters/clock"
	"github.com/gengate/gengate/adapters/idgen"
	"github.com/gengate/gengate/adapters/memory"
	"github.com/gengate/gengate/adapters/metrics"
	"github.com/gengate/gengate/adapters/oidc"
	"github.com/gengate/gengate/adapters/payment"
	"github.com/gengate/gengate/adapters/sqlite"
	"github.com/gengate/gengate/app"
	"github.com/gengate/gengate/config"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/ports"
	"github.com/gengate/gengate/web"
)

// Options control how the application is assembled.
type Options struct {
	// DevMode swaps SQLite for in-memory stores and disables Stripe:
	// webhooks are accepted unsigned and no customer has a subscription.
	DevMode bool

	// HotReload watches the config file and swaps the plan catalog on change.
	HotReload bool
}

// App is the assembled application.
type App struct {
	holder  *config.Holder
	server  *http.Server
	db      *sqlite.DB // nil in dev mode
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New assembles the application from a config holder.
func New(holder *config.Holder, opts Options) (*App, error) {
	cfg := holder.Get()

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	holder.OnChange(func(*config.Config) {
		collector.ConfigReloads.Inc()
		collector.ConfigLastReload.SetToCurrentTime()
	})

	realClock := clock.Real{}
	ids := idgen.UUID{}

	var (
		profiles      ports.ProfileStore
		ledger        ports.LedgerStore
		subscriptions ports.SubscriptionStore
		credits       ports.CreditStore
		db            *sqlite.DB
	)
	if opts.DevMode {
		profiles = memory.NewProfileStore()
		ledger = memory.NewLedgerStore()
		subscriptions = memory.NewSubscriptionStore()
		credits = memory.NewCreditStore()
		logger.Warn().Msg("dev mode: in-memory stores, state is lost on exit")
	} else {
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		profiles = sqlite.NewProfileStore(db)
		ledger = sqlite.NewLedgerStore(db)
		subscriptions = sqlite.NewSubscriptionStore(db)
		credits = sqlite.NewCreditStore(db)
	}

	local := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var external ports.ExternalTokenVerifier = oidc.Disabled{}
	if cfg.Auth.OIDC.IssuerURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		verifier, err := oidc.New(ctx, cfg.Auth.OIDC.IssuerURL, cfg.Auth.OIDC.ClientID)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		external = verifier
	}

	var provider interface {
		ports.BillingProvider
		web.WebhookVerifier
	}
	if opts.DevMode || cfg.Billing.StripeKey == "" {
		provider = payment.NewNoopProvider()
	} else {
		provider = payment.NewStripeProvider(payment.StripeConfig{
			SecretKey:     cfg.Billing.StripeKey,
			WebhookSecret: cfg.Billing.WebhookSecret,
		})
	}

	resolver := app.NewIdentityResolver(local, external, profiles, holder, realClock, logger)
	entitlements := app.NewEntitlementService(ledger, subscriptions, holder, ids, realClock, logger)
	reconciler := app.NewReconcileService(profiles, subscriptions, provider, holder, ids, realClock, logger)
	grants := app.NewGrantService(credits, ids, realClock, logger)

	handler := web.NewHandler(web.Deps{
		Resolver:     resolver,
		Entitlements: entitlements,
		Reconciler:   reconciler,
		Grants:       grants,
		Profiles:     profiles,
		Verifier:     provider,
		Generator:    &acceptingGenerator{ids: ids},
		Metrics:      collector,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a := &App{
		holder:  holder,
		server:  server,
		db:      db,
		logger:  logger,
		metrics: collector,
	}

	if opts.HotReload {
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP reload only")
		}
		holder.WatchSignals()
	}

	return a, nil
}

// Handler exposes the assembled HTTP handler, for embedding and tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.server.Addr).Msg("server listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		a.logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return err
	}

	a.holder.Stop()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// acceptingGenerator acknowledges generation requests with a fresh job
// reference. TODO: replace with the client for the real generation backend
// once its API is pinned down.
type acceptingGenerator struct {
	ids ports.IDGenerator
}

func (g *acceptingGenerator) Generate(ctx context.Context, userID string, op credit.Operation) (string, error) {
	return g.ids.New(), nil
}
