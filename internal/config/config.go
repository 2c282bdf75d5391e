// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration.
type Config struct {
	Port                 int
	StartingBalance      decimal.Decimal
	QuoteAPIURL          string
	QuoteRefreshSchedule string // cron spec, e.g. "@every 30s"
	DatabaseURL          string
	RedisURL             string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists.
	_ = godotenv.Load()

	balance, err := decimal.NewFromString(getEnv("STARTING_BALANCE", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("STARTING_BALANCE may not be negative")
	}

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		StartingBalance:      balance,
		QuoteAPIURL:          getEnv("QUOTE_API_URL", ""),
		QuoteRefreshSchedule: getEnv("QUOTE_REFRESH_SCHEDULE", "@every 30s"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
