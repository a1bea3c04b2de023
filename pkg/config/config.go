// Package config loads service settings from an optional .env file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/listing-ledger/pkg/database"
	"github.com/tair/listing-ledger/pkg/tracing"
)

// Ledger backends
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Config holds every setting the listing binaries read
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	HTTPPort string
	GRPCPort string

	JaegerEndpoint   string
	TraceSampleRatio float64

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaGroupID string

	LedgerBackend string
	LedgerAccount string
	LedgerSeed    string

	Database database.Config

	RedisAddr string
	RedisDB   int

	// RateLimitRequests per RateLimitWindow per client; 0 disables limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// RateLimitTrustedProxies are the only peers whose X-Forwarded-For is read
	RateLimitTrustedProxies []string
}

// TracingOptions returns the tracer settings for this service
func (c Config) TracingOptions() tracing.Options {
	return tracing.Options{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Endpoint:    c.JaegerEndpoint,
		SampleRatio: c.TraceSampleRatio,
	}
}

// IsDevelopment reports whether the service runs in the development environment
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads .env files if present, then the environment. Values already set
// in the environment win over the files.
func Load(serviceName string, files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	cfg := Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", serviceName),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer: getEnv("JWT_ISSUER", "listing-ledger"),

		KafkaEnabled: getEnv("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "listing-indexer"),

		LedgerBackend: getEnv("LEDGER_BACKEND", LedgerMemory),
		LedgerAccount: getEnv("LEDGER_ACCOUNT", "listing-registry"),
		LedgerSeed:    getEnv("LEDGER_SEED", ""),

		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ledgerdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		RateLimitTrustedProxies: splitList(getEnv("RATE_LIMIT_TRUSTED_PROXIES", "")),
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.TraceSampleRatio, err = strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid TRACE_SAMPLE_RATIO: %w", err)
	}
	if cfg.RateLimitRequests, err = strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "0")); err != nil || cfg.RateLimitRequests < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS %q", getEnv("RATE_LIMIT_REQUESTS", "0"))
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	switch cfg.LedgerBackend {
	case LedgerMemory, LedgerPostgres:
	default:
		return Config{}, fmt.Errorf("invalid LEDGER_BACKEND %q: want %s or %s", cfg.LedgerBackend, LedgerMemory, LedgerPostgres)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
