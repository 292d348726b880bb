package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every configurable value for the service. It is resolved once
// at startup; nothing else reads the environment.
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Waitlist    WaitlistConfig
	Email       EmailConfig
	Redis       RedisConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnectionString builds the database connection string from the config.
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// WaitlistConfig carries the signup and unsubscribe settings.
type WaitlistConfig struct {
	// AllowedOrigins are exact origins accepted for browser submissions.
	AllowedOrigins []string
	// OriginSuffixes are hostname suffixes (e.g. ".pages.dev") accepted for
	// preview deployments.
	OriginSuffixes []string
	// IPSalt is mixed into hashed client identifiers before logging or
	// rate-limit keying.
	IPSalt string
	// UnsubscribeSecret signs one-click unsubscribe tokens.
	UnsubscribeSecret string
	// UnsubscribeBaseURL is the public endpoint unsubscribe links point at.
	UnsubscribeBaseURL string
	// AdminToken protects the /api/admin surface. Empty disables admin
	// endpoints entirely.
	AdminToken string
	// PrivacyVersion is the privacy policy version recorded with each signup.
	PrivacyVersion string
	TurnstileEnabled bool
	TurnstileSecret  string
	// SendWelcomeOnDuplicate re-sends the welcome email when an existing
	// subscriber signs up again.
	SendWelcomeOnDuplicate bool
}

type EmailConfig struct {
	// Provider selects the mail client: "resend" or "mock".
	Provider     string
	ResendAPIKey string
	From         string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NewConfig loads the configuration from the environment. In non-production
// environments a .env file is loaded first when present.
func NewConfig() (*Config, error) {
	env := getEnvWithDefault("ENVIRONMENT", "development")
	if env != "production" {
		_ = godotenv.Load()
	}

	dbPassword, err := requireEnv("DATABASE_PASSWORD")
	if err != nil {
		return nil, err
	}
	unsubSecret, err := requireEnv("WAITLIST_UNSUBSCRIBE_SECRET")
	if err != nil {
		return nil, err
	}
	ipSalt, err := requireEnv("WAITLIST_IP_SALT")
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port: getEnvWithDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnvWithDefault("DATABASE_HOST", "localhost"),
			Port:     getEnvWithDefault("DATABASE_PORT", "5432"),
			User:     getEnvWithDefault("DATABASE_USER", "postgres"),
			Password: dbPassword,
			Name:     getEnvWithDefault("DATABASE_NAME", "waitlist"),
			SSLMode:  getEnvWithDefault("DATABASE_SSL_MODE", "disable"),
		},
		Waitlist: WaitlistConfig{
			AllowedOrigins:         splitAndTrim(getEnvWithDefault("WAITLIST_ALLOWED_ORIGINS", "")),
			OriginSuffixes:         splitAndTrim(getEnvWithDefault("WAITLIST_ORIGIN_SUFFIXES", ".pages.dev")),
			IPSalt:                 ipSalt,
			UnsubscribeSecret:      unsubSecret,
			UnsubscribeBaseURL:     getEnvWithDefault("WAITLIST_UNSUBSCRIBE_BASE_URL", ""),
			AdminToken:             getEnvWithDefault("WAITLIST_ADMIN_TOKEN", ""),
			PrivacyVersion:         getEnvWithDefault("WAITLIST_PRIVACY_VERSION", "2026-02-25"),
			TurnstileEnabled:       getEnvWithDefault("TURNSTILE_ENABLED", "false") == "true",
			TurnstileSecret:        getEnvWithDefault("TURNSTILE_SECRET_KEY", ""),
			SendWelcomeOnDuplicate: getEnvWithDefault("WAITLIST_SEND_ON_DUPLICATE", "false") == "true",
		},
		Email: EmailConfig{
			Provider:     getEnvWithDefault("EMAIL_PROVIDER", "mock"),
			ResendAPIKey: getEnvWithDefault("RESEND_API_KEY", ""),
			From:         getEnvWithDefault("EMAIL_FROM", "Waitlist <no-reply@example.com>"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvWithDefault("REDIS_ENABLED", "false") == "true",
			Host:     getEnvWithDefault("REDIS_HOST", "localhost"),
			Port:     getEnvWithDefault("REDIS_PORT", "6379"),
			Password: getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
	}

	if cfg.Waitlist.TurnstileEnabled && cfg.Waitlist.TurnstileSecret == "" {
		return nil, fmt.Errorf("TURNSTILE_SECRET_KEY is required when TURNSTILE_ENABLED is true")
	}
	if cfg.Email.Provider == "resend" && cfg.Email.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER is resend")
	}

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
