// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Environment is the deployment environment (development, staging, production)
	Environment string

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Identity provider configuration
	Identity IdentityConfig

	// CSRF configuration
	CSRF CSRFConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// MaxBodyBytes bounds request body size before the body cache buffers it
	MaxBodyBytes int64
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis settings for distributed rate limiting
type RedisConfig struct {
	// URL is empty when rate limiting should stay in-process
	URL      string
	Password string
	DB       int
}

// IdentityConfig holds session verification settings
type IdentityConfig struct {
	// Provider selects the verification backend: "http" or "oidc"
	Provider string

	// HTTP provider settings
	BaseURL    string
	CookieName string

	// OIDC provider settings
	Issuer string
}

// CSRFConfig holds anti-forgery token settings
type CSRFConfig struct {
	// ReaperSchedule is a cron expression for background expired-token
	// cleanup; empty disables the reaper (lazy sweeping still runs)
	ReaperSchedule string
}

// RateLimitConfig holds per-category quota overrides
type RateLimitConfig struct {
	AuthLimit     int
	AuthWindow    time.Duration
	GeneralLimit  int
	GeneralWindow time.Duration
	UploadLimit   int
	UploadWindow  time.Duration
	ChatLimit     int
	ChatWindow    time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	defaults := ratelimit.DefaultProfiles()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TURNSTILE_HOST", "0.0.0.0"),
			Port:            getEnv("TURNSTILE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TURNSTILE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TURNSTILE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TURNSTILE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TURNSTILE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("TURNSTILE_HEALTH_PORT", "9090"),
			MaxBodyBytes:    getEnvInt64("TURNSTILE_MAX_BODY_BYTES", 1<<20),
		},
		Environment: getEnv("TURNSTILE_ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			URL:          getEnv("TURNSTILE_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("TURNSTILE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("TURNSTILE_POSTGRES_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:      getEnv("TURNSTILE_REDIS_URL", ""),
			Password: getEnv("TURNSTILE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TURNSTILE_REDIS_DB", 0),
		},
		Identity: IdentityConfig{
			Provider:   getEnv("TURNSTILE_IDENTITY_PROVIDER", "http"),
			BaseURL:    getEnv("TURNSTILE_IDENTITY_URL", ""),
			CookieName: getEnv("TURNSTILE_SESSION_COOKIE", "session"),
			Issuer:     getEnv("TURNSTILE_OIDC_ISSUER", ""),
		},
		CSRF: CSRFConfig{
			ReaperSchedule: getEnv("TURNSTILE_CSRF_REAPER_SCHEDULE", ""),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:     getEnvInt("TURNSTILE_RATELIMIT_AUTH_LIMIT", defaults[ratelimit.CategoryAuth].Limit),
			AuthWindow:    getEnvDuration("TURNSTILE_RATELIMIT_AUTH_WINDOW", defaults[ratelimit.CategoryAuth].Window),
			GeneralLimit:  getEnvInt("TURNSTILE_RATELIMIT_GENERAL_LIMIT", defaults[ratelimit.CategoryGeneral].Limit),
			GeneralWindow: getEnvDuration("TURNSTILE_RATELIMIT_GENERAL_WINDOW", defaults[ratelimit.CategoryGeneral].Window),
			UploadLimit:   getEnvInt("TURNSTILE_RATELIMIT_UPLOAD_LIMIT", defaults[ratelimit.CategoryUpload].Limit),
			UploadWindow:  getEnvDuration("TURNSTILE_RATELIMIT_UPLOAD_WINDOW", defaults[ratelimit.CategoryUpload].Window),
			ChatLimit:     getEnvInt("TURNSTILE_RATELIMIT_CHAT_LIMIT", defaults[ratelimit.CategoryChat].Limit),
			ChatWindow:    getEnvDuration("TURNSTILE_RATELIMIT_CHAT_WINDOW", defaults[ratelimit.CategoryChat].Window),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("TURNSTILE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("TURNSTILE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("TURNSTILE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("TURNSTILE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("TURNSTILE_OTEL_SERVICE_NAME", "turnstile"),
			OTelServiceVersion: getEnv("TURNSTILE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("TURNSTILE_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether debug diagnostics must be suppressed
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// Profiles builds the rate limit quota table from configured overrides
func (c *Config) Profiles() map[ratelimit.Category]ratelimit.Profile {
	return map[ratelimit.Category]ratelimit.Profile{
		ratelimit.CategoryAuth:    {Limit: c.RateLimit.AuthLimit, Window: c.RateLimit.AuthWindow},
		ratelimit.CategoryGeneral: {Limit: c.RateLimit.GeneralLimit, Window: c.RateLimit.GeneralWindow},
		ratelimit.CategoryUpload:  {Limit: c.RateLimit.UploadLimit, Window: c.RateLimit.UploadWindow},
		ratelimit.CategoryChat:    {Limit: c.RateLimit.ChatLimit, Window: c.RateLimit.ChatWindow},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Identity.Provider {
	case "http":
		if c.Identity.BaseURL == "" {
			return fmt.Errorf("identity URL is required for the http provider")
		}
	case "oidc":
		if c.Identity.Issuer == "" {
			return fmt.Errorf("OIDC issuer is required for the oidc provider")
		}
	default:
		return fmt.Errorf("invalid identity provider: %s (must be http or oidc)", c.Identity.Provider)
	}

	for category, profile := range c.Profiles() {
		if profile.Limit <= 0 {
			return fmt.Errorf("rate limit for category %s must be positive", category)
		}
		if profile.Window <= 0 {
			return fmt.Errorf("rate limit window for category %s must be positive", category)
		}
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
