// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// DatabaseURL points at the Postgres alias index. Empty disables short
	// links entirely; the rest of the service keeps working.
	DatabaseURL string
	DBMaxConns  int32

	JWTSecret     string
	AdminPassword string
	Port          string
	AppEnv        string
	LogLevel      string

	// PublicBaseURL is the externally reachable base of this service,
	// used to build download and short-link URLs, e.g. "https://files.example.com".
	PublicBaseURL string

	// Upload policy
	MaxUploadBytes   int64
	AllowedMimeTypes []string // substring patterns; empty list admits everything
	BlockedMimeTypes []string // substring patterns; checked before the allowed list
	SlugRetries      int

	// Cloudflare Turnstile bot check; empty secret disables verification.
	TurnstileSecretKey string

	// Object storage (S3-compatible: MinIO locally, any S3 provider in production)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, reading from environment")
	}

	return &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DBMaxConns:    int32(getEnvInt64("DB_MAX_CONNS", 10)),
		JWTSecret:     getEnv("JWT_SECRET", "change_me_in_production"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		Port:          getEnv("PORT", "8080"),
		AppEnv:        getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_MB", 100) * 1024 * 1024,
		AllowedMimeTypes: splitList(getEnv("ALLOWED_MIME_TYPES", "")),
		BlockedMimeTypes: splitList(getEnv("BLOCKED_MIME_TYPES", "")),
		SlugRetries:      int(getEnvInt64("SLUG_RETRIES", 8)),

		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "uploads"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

// splitList parses a comma-separated list, trimming whitespace and dropping empties.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
