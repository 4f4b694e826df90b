package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gengate/gengate/bootstrap"
	"github.com/gengate/gengate/config"
)

var (
	devMode   bool
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Gengate API server.

The server will:
  - Load configuration from gengate.yaml (or --config)
  - Apply GENGATE_* environment variable overrides
  - Open the SQLite database and run migrations
  - Serve the generation-gating API, the Stripe webhook, and /metrics

Environment variables (for Docker deployments):
  GENGATE_SERVER_PORT            - Server port (default: 8080)
  GENGATE_DATABASE_PATH          - SQLite path (default: gengate.db)
  GENGATE_JWT_SECRET             - Local token HMAC secret
  GENGATE_OIDC_ISSUER_URL        - External identity provider issuer
  GENGATE_STRIPE_KEY             - Stripe API key
  GENGATE_STRIPE_WEBHOOK_SECRET  - Stripe webhook signing secret
  GENGATE_LOG_LEVEL              - debug, info, warn, error

Examples:
  gengate serve
  gengate serve --config /etc/gengate/config.yaml
  gengate serve --dev`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&devMode, "dev", false, "in-memory stores and unsigned webhooks")
	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload plan catalog on config change")
}

func runServe(cmd *cobra.Command, args []string) error {
	var holder *config.Holder
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		h, err := config.NewHolder(cfgFile, zerolog.Nop())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		holder = h
	} else {
		// No config file: run from GENGATE_* environment variables.
		// Nothing to watch, so hot reload is moot.
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		holder = config.NewStaticHolder(cfg, zerolog.Nop())
		hotReload = false
	}

	app, err := bootstrap.New(holder, bootstrap.Options{
		DevMode:   devMode,
		HotReload: hotReload,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Blocks until shutdown.
	return app.Run()
}
