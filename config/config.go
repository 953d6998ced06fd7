package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	DatabaseDriver string // "postgres" or "sqlite", default: postgres
	PostgresDSN    string
	SQLitePath     string // default: ai-core.db

	// Cache (optional, in-memory when empty)
	RedisAddr string

	// Providers
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DefaultModel    string // default: gpt-4o

	// Host-provided AI client (optional)
	HostAIURL string
	HostAIKey string

	// Pricing override file (YAML, optional)
	PricingFile string

	// Logging
	LogMode string // "dev" or "prod"

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	RunSeed bool
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseDriver:       strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		SQLitePath:           getEnv("SQLITE_PATH", "ai-core.db"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		DefaultModel:         getEnv("DEFAULT_MODEL", "gpt-4o"),
		HostAIURL:            strings.TrimRight(os.Getenv("HOST_AI_URL"), "/"),
		HostAIKey:            os.Getenv("HOST_AI_KEY"),
		PricingFile:          os.Getenv("PRICING_FILE"),
		LogMode:              getEnv("LOG_MODE", "dev"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		RunSeed:              os.Getenv("RUN_SEED") == "true",
	}

	// Validation
	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q (use postgres or sqlite)", cfg.DatabaseDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
