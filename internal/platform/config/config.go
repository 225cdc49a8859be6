// Package config reads the process configuration from VIGORLOG_* environment
// variables so main stays lean. Every backend is optional: with nothing set
// the server runs fully in-memory, which is what the demo and the tests use.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server binary needs.
type Config struct {
	Addr        string
	MetricsAddr string
	Environment string

	// StoreBackend selects account and consent persistence: "memory" or "postgres".
	StoreBackend string
	PostgresURL  string

	// RedisURL enables the Redis dual-consent request store when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink when set.
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey   string
	TokenIssuer     string
	ConsentDocVer   string
	AuditBufferSize int
	SeedDemo        bool

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("VIGORLOG_ADDR", ":8080"),
		MetricsAddr:     getEnv("VIGORLOG_METRICS_ADDR", ":9090"),
		Environment:     getEnv("VIGORLOG_ENV", "development"),
		StoreBackend:    getEnv("VIGORLOG_STORE_BACKEND", "memory"),
		PostgresURL:     os.Getenv("VIGORLOG_POSTGRES_URL"),
		RedisURL:        os.Getenv("VIGORLOG_REDIS_URL"),
		AuditTopic:      getEnv("VIGORLOG_AUDIT_TOPIC", "vigorlog.audit"),
		JWTSigningKey:   getEnv("VIGORLOG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenIssuer:     getEnv("VIGORLOG_TOKEN_ISSUER", "vigorlog"),
		ConsentDocVer:   getEnv("VIGORLOG_CONSENT_DOC_VERSION", "2026-01"),
		AuditBufferSize: getEnvInt("VIGORLOG_AUDIT_BUFFER", 256),
		SeedDemo:        os.Getenv("VIGORLOG_SEED_DEMO") == "true",
		ShutdownTimeout: getEnvDuration("VIGORLOG_SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	if brokers := os.Getenv("VIGORLOG_KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
