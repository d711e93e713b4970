package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server (dashboard API)
	Port     int
	LogLevel string

	// Files
	RelationshipsPath  string
	DatabasePath       string
	StatementDir       string
	HeadlessSecretPath string
	VaultPath          string

	// Fetch behaviour
	BackfillBatchSize int
	LoginRetries      int
	LoginBackoff      time.Duration

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RelationshipsPath:  getEnv("TALLY_CONFIG", "./config.yaml"),
		DatabasePath:       getEnv("TALLY_DB", "./tally.db"),
		StatementDir:       getEnv("TALLY_STATEMENT_DIR", "./statements"),
		HeadlessSecretPath: getEnv("TALLY_HEADLESS_SECRETS", filepath.Join(home, ".tally", "secrets.yaml")),
		VaultPath:          getEnv("TALLY_VAULT", filepath.Join(home, ".tally", "vault")),

		BackfillBatchSize: getEnvInt("TALLY_BACKFILL_BATCH", 30),
		LoginRetries:      getEnvInt("TALLY_LOGIN_RETRIES", 2),
		LoginBackoff:      getEnvDuration("TALLY_LOGIN_BACKOFF", 500*time.Millisecond),

		CacheTTL: getEnvDuration("CACHE_TTL", time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
