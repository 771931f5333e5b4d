package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/mossline/pos-engine/internal/loyalty"
	"github.com/mossline/pos-engine/internal/tip"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	StoreID   string
	StoreName string
	Currency  string
	TaxBps    int64

	TipPresets     []int
	TipDefault     int
	TipAllowCustom bool

	Loyalty loyalty.Config

	GuestPayBaseURL    string
	GuestPayRateMax    int
	GuestPayRateWindow time.Duration
	LoginRateMax       int
	LoginRateWindow    time.Duration

	PaymentProviderURL string
	PaymentAPIKey      string
	BreakerMinRequests int
	BreakerFailRatio   float64
	BreakerOpenFor     time.Duration

	CartTTL         time.Duration
	SessionTTL      time.Duration
	ReceiptTTL      time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSAllowedOrigins []string
	MigrationsPath     string
	WorkerConcurrency  int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		StoreID:   valueOrDefault(k.String("STORE_ID"), "default"),
		StoreName: valueOrDefault(k.String("STORE_NAME"), "Mossline"),
		Currency:  valueOrDefault(k.String("CURRENCY"), "USD"),
		TaxBps:    parseInt64(k.String("TAX_BPS"), 0),

		TipPresets:     parseIntList(k.String("TIP_PRESETS"), []int{15, 18, 20}),
		TipDefault:     int(parseInt64(k.String("TIP_DEFAULT"), 18)),
		TipAllowCustom: parseBool(valueOrDefault(k.String("TIP_ALLOW_CUSTOM"), "true")),

		Loyalty: loyalty.Config{
			PointsPerDollar:    parseInt64(k.String("LOYALTY_POINTS_PER_DOLLAR"), 10),
			RedemptionRateBps:  parseInt64(k.String("LOYALTY_REDEMPTION_RATE_BPS"), 10000),
			SilverMin:          parseInt64(k.String("LOYALTY_SILVER_MIN"), 1000),
			GoldMin:            parseInt64(k.String("LOYALTY_GOLD_MIN"), 5000),
			PlatinumMin:        parseInt64(k.String("LOYALTY_PLATINUM_MIN"), 10000),
			BronzeMultiplier:   parseInt64(k.String("LOYALTY_BRONZE_MULTIPLIER"), 10000),
			SilverMultiplier:   parseInt64(k.String("LOYALTY_SILVER_MULTIPLIER"), 11000),
			GoldMultiplier:     parseInt64(k.String("LOYALTY_GOLD_MULTIPLIER"), 12500),
			PlatinumMultiplier: parseInt64(k.String("LOYALTY_PLATINUM_MULTIPLIER"), 15000),
		},

		GuestPayBaseURL:    strings.TrimRight(k.String("GUEST_PAY_BASE_URL"), "/"),
		GuestPayRateMax:    int(parseInt64(k.String("GUEST_PAY_RATE_MAX"), 30)),
		GuestPayRateWindow: parseDuration(k.String("GUEST_PAY_RATE_WINDOW"), "1m"),
		LoginRateMax:       int(parseInt64(k.String("LOGIN_RATE_MAX"), 10)),
		LoginRateWindow:    parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),

		PaymentProviderURL: k.String("PAYMENT_PROVIDER_URL"),
		PaymentAPIKey:      k.String("PAYMENT_API_KEY"),
		BreakerMinRequests: int(parseInt64(k.String("BREAKER_MIN_REQUESTS"), 5)),
		BreakerFailRatio:   parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:     parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		CartTTL:         parseDuration(k.String("CART_TTL"), "24h"),
		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "2h"),
		ReceiptTTL:      parseDuration(k.String("RECEIPT_TTL"), "168h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		JWTSecret:       k.String("JWT_SECRET"),
		JWTIssuer:       valueOrDefault(k.String("JWT_ISSUER"), "pos-engine"),
		JWTAudience:     valueOrDefault(k.String("JWT_AUDIENCE"), "pos-register"),
		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL: parseDuration(k.String("REFRESH_TOKEN_TTL"), "12h"),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrationsPath:     valueOrDefault(k.String("MIGRATIONS_PATH"), "migrations"),
		WorkerConcurrency:  int(parseInt64(k.String("WORKER_CONCURRENCY"), 10)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.TaxBps < 0 {
		return nil, errors.New("TAX_BPS must not be negative")
	}
	if cfg.Loyalty.SilverMin <= 0 || cfg.Loyalty.GoldMin <= cfg.Loyalty.SilverMin || cfg.Loyalty.PlatinumMin <= cfg.Loyalty.GoldMin {
		return nil, errors.New("loyalty tier thresholds must be strictly positive and ascending")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Tip returns the tip prompt configuration.
func (c *Config) Tip() tip.Config {
	return tip.Config{
		Presets:        c.TipPresets,
		DefaultPercent: c.TipDefault,
		AllowCustom:    c.TipAllowCustom,
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseIntList(value string, fallback []int) []int {
	parts := splitAndTrim(value)
	if len(parts) == 0 {
		return fallback
	}
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return fallback
		}
		result = append(result, n)
	}
	return result
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
