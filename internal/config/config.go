package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// ERP backend collaborator.
	ERPBaseURL string
	ERPAPIKey  string

	// Outbound resilience.
	OutboundTimeout    time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent float64
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	// Caching and draft lifecycle.
	ReferenceCacheTTL time.Duration
	SnapshotTTL       time.Duration
	DraftTTL          time.Duration
	IdempotencyTTL    time.Duration

	// Submission rate limiting.
	SubmitRateMax    int
	SubmitRateWindow time.Duration

	// Worker.
	StockRefreshInterval time.Duration
	LockTTL              time.Duration
	LockRetryBackoff     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		ERPBaseURL: strings.TrimRight(strings.TrimSpace(k.String("ERP_BASE_URL")), "/"),
		ERPAPIKey:  strings.TrimSpace(k.String("ERP_API_KEY")),

		OutboundTimeout:    parseDuration(k.String("ERP_TIMEOUT"), "10s"),
		RetryBase:          parseDuration(k.String("ERP_RETRY_BASE"), "100ms"),
		RetryMaxAttempts:   intOrDefault(k.String("ERP_RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: floatOrDefault(k.String("ERP_RETRY_JITTER"), 0.2),
		CircuitMinRequests: intOrDefault(k.String("ERP_CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate: floatOrDefault(k.String("ERP_CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("ERP_CIRCUIT_OPEN_FOR"), "30s"),

		ReferenceCacheTTL: parseDuration(k.String("REFERENCE_CACHE_TTL"), "5m"),
		SnapshotTTL:       parseDuration(k.String("STOCK_SNAPSHOT_TTL"), "10m"),
		DraftTTL:          parseDuration(k.String("DRAFT_TTL"), "24h"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		SubmitRateMax:    intOrDefault(k.String("SUBMIT_RATE_MAX"), 30),
		SubmitRateWindow: parseDuration(k.String("SUBMIT_RATE_WINDOW"), "1m"),

		StockRefreshInterval: parseDuration(k.String("STOCK_REFRESH_INTERVAL"), "5m"),
		LockTTL:              parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff:     parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ERPBaseURL == "" {
		return nil, errors.New("ERP_BASE_URL is required")
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

func intOrDefault(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func floatOrDefault(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(trimmed, "%g", &parsed); err != nil {
		return fallback
	}
	return parsed
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
