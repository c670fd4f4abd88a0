package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values used by the backend service.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Built from
	// PORT (default 3000) unless BACKEND_ADDR supplies a full address.
	ServerAddress string

	// StripeSecretKey authenticates relay calls against the payment provider.
	StripeSecretKey string

	// StripePublishableKey is handed to the browser through /api/config.
	StripePublishableKey string

	// StripeWebhookSecret verifies Stripe-Signature headers. Empty disables verification.
	StripeWebhookSecret string

	// StripeAPIBase overrides the provider base URL (tests, stripe-mock).
	StripeAPIBase string

	// AllowedOrigin is the single browser origin allowed by CORS.
	AllowedOrigin string

	// DatabaseURL is the optional Postgres DSN for the payment ledger.
	DatabaseURL string

	// RedisURL is the optional Redis URL backing idempotent replays.
	RedisURL string

	// ReconcileInterval is how often pending ledger intents are refreshed from
	// the provider. Zero disables the reconciler.
	ReconcileInterval time.Duration
}

const (
	defaultPort          = "3000"
	defaultAllowedOrigin = "http://localhost:5173"
	defaultStripeAPIBase = "https://api.stripe.com/v1"
	defaultReconcile     = 5 * time.Minute

	envPort                 = "PORT"
	envServerAddress        = "BACKEND_ADDR"
	envStripeSecretKey      = "STRIPE_SECRET_KEY"
	envStripePublishableKey = "STRIPE_PUBLISHABLE_KEY"
	envStripeWebhookSecret  = "STRIPE_WEBHOOK_SECRET"
	envStripeAPIBase        = "STRIPE_API_BASE"
	envAllowedOrigin        = "CORS_ALLOWED_ORIGIN"
	envDatabaseURL          = "DATABASE_URL"
	envRedisURL             = "REDIS_URL"
	envReconcileInterval    = "RECONCILE_INTERVAL"
)

// Load reads configuration from environment variables, applies defaults, and returns
// a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	port := firstNonEmpty(strings.TrimSpace(os.Getenv(envPort)), defaultPort)
	if _, err := strconv.Atoi(port); err != nil {
		return Config{}, fmt.Errorf("invalid %s %q: must be numeric", envPort, port)
	}

	cfg := Config{
		ServerAddress:        firstNonEmpty(os.Getenv(envServerAddress), ":"+port),
		StripeSecretKey:      strings.TrimSpace(os.Getenv(envStripeSecretKey)),
		StripePublishableKey: strings.TrimSpace(os.Getenv(envStripePublishableKey)),
		StripeWebhookSecret:  strings.TrimSpace(os.Getenv(envStripeWebhookSecret)),
		StripeAPIBase:        strings.TrimRight(firstNonEmpty(os.Getenv(envStripeAPIBase), defaultStripeAPIBase), "/"),
		AllowedOrigin:        firstNonEmpty(os.Getenv(envAllowedOrigin), defaultAllowedOrigin),
		DatabaseURL:          strings.TrimSpace(os.Getenv(envDatabaseURL)),
		RedisURL:             strings.TrimSpace(os.Getenv(envRedisURL)),
	}

	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("%s is required", envStripeSecretKey)
	}

	if _, err := url.ParseRequestURI(cfg.StripeAPIBase); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", envStripeAPIBase, err)
	}

	interval, err := parseInterval(os.Getenv(envReconcileInterval), defaultReconcile)
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", envReconcileInterval, err)
	}
	cfg.ReconcileInterval = interval

	return cfg, nil
}

// LoadDatabaseURL reads only DATABASE_URL. Tools that never talk to the
// payment provider use it instead of Load.
func LoadDatabaseURL() (string, error) {
	dsn := strings.TrimSpace(os.Getenv(envDatabaseURL))
	if dsn == "" {
		return "", fmt.Errorf("%s is required", envDatabaseURL)
	}
	return dsn, nil
}

// parseInterval accepts Go durations ("90s", "5m"); "0" and "off" disable.
func parseInterval(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return fallback, nil
	case "0", "off":
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
