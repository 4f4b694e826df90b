// Package config provides configuration loading, validation, and hot reload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gengate/gengate/domain/plan"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Billing  BillingConfig  `yaml:"billing"`
	Database DatabaseConfig `yaml:"database"`
	Credits  CreditsConfig  `yaml:"credits"`
	Plans    []PlanConfig   `yaml:"plans"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig configures the two credential verification schemes.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"` // local scheme HMAC secret
	TokenTTL  time.Duration `yaml:"token_ttl"`
	OIDC      OIDCConfig    `yaml:"oidc"`
}

// OIDCConfig configures the external identity provider.
type OIDCConfig struct {
	IssuerURL string `yaml:"issuer_url"`
	ClientID  string `yaml:"client_id"`
}

// BillingConfig configures the Stripe integration.
type BillingConfig struct {
	StripeKey     string `yaml:"stripe_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file path
}

// CreditsConfig configures credit pricing. The video rate is system-wide,
// not per plan.
type CreditsConfig struct {
	VideoPerSecond float64 `yaml:"video_per_second"` // credits per second of video
}

// PlanConfig configures a subscription plan.
type PlanConfig struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name"`
	TierRank               int      `yaml:"tier_rank"`
	MonthlyGenerationLimit int      `yaml:"monthly_generation_limit"`
	CreditAllowance        int64    `yaml:"credit_allowance"`
	StripePriceID          string   `yaml:"stripe_price_id"`
	Capabilities           []string `yaml:"capabilities"`
	Default                bool     `yaml:"default"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for Docker deployments where no config file is mounted; the plan
// catalog falls back to the built-in free plan.
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables when the file does not exist.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies GENGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GENGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GENGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GENGATE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("GENGATE_OIDC_ISSUER_URL"); v != "" {
		cfg.Auth.OIDC.IssuerURL = v
	}
	if v := os.Getenv("GENGATE_OIDC_CLIENT_ID"); v != "" {
		cfg.Auth.OIDC.ClientID = v
	}
	if v := os.Getenv("GENGATE_STRIPE_KEY"); v != "" {
		cfg.Billing.StripeKey = v
	}
	if v := os.Getenv("GENGATE_STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}
	if v := os.Getenv("GENGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GENGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GENGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "gengate.db"
	}
	if cfg.Credits.VideoPerSecond == 0 {
		cfg.Credits.VideoPerSecond = 0.5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = []PlanConfig{
			{ID: "free", Name: "Free", TierRank: 0, MonthlyGenerationLimit: 10, CreditAllowance: 10, Default: true},
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Credits.VideoPerSecond <= 0 {
		return fmt.Errorf("credits.video_per_second must be positive")
	}

	defaults := 0
	seen := make(map[string]bool)
	for _, p := range cfg.Plans {
		if p.ID == "" {
			return fmt.Errorf("plan with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = true
		if p.TierRank < 0 {
			return fmt.Errorf("plan %q: tier_rank must be >= 0", p.ID)
		}
		if p.MonthlyGenerationLimit <= 0 {
			return fmt.Errorf("plan %q: monthly_generation_limit must be positive", p.ID)
		}
		if p.CreditAllowance <= 0 {
			return fmt.Errorf("plan %q: credit_allowance must be positive", p.ID)
		}
		if p.Default {
			defaults++
			if p.TierRank != plan.FreeTierRank {
				return fmt.Errorf("default plan %q must be at the free tier", p.ID)
			}
		}
	}
	if defaults != 1 {
		return fmt.Errorf("exactly one default plan required, found %d", defaults)
	}
	return nil
}

// Catalog builds the immutable plan catalog from the configured plans.
func (c *Config) Catalog() plan.Catalog {
	plans := make([]plan.Plan, 0, len(c.Plans))
	for _, p := range c.Plans {
		plans = append(plans, plan.Plan{
			ID:                     p.ID,
			Name:                   p.Name,
			TierRank:               p.TierRank,
			MonthlyGenerationLimit: p.MonthlyGenerationLimit,
			CreditAllowance:        p.CreditAllowance,
			StripePriceID:          p.StripePriceID,
			Capabilities:           p.Capabilities,
			IsDefault:              p.Default,
		})
	}
	return plan.NewCatalog(plans)
}
