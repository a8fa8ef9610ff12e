package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/internal/logger"
)

type Config struct {
	// Ledger Configuration
	DataFile         string
	Currency         string
	CreditPolicy     string
	AllocationPolicy string
	PersistTimeout   time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("UDHAAR_PERSIST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("UDHAAR_PERSIST_TIMEOUT: %w", err)
	}

	config := &Config{
		DataFile:         getEnv("UDHAAR_DATA_FILE", "udhaar.json"),
		Currency:         strings.ToLower(getEnv("UDHAAR_CURRENCY", "inr")),
		CreditPolicy:     getEnv("UDHAAR_CREDIT_POLICY", string(allocation.CreditStanding)),
		AllocationPolicy: getEnv("UDHAAR_ALLOCATION_POLICY", "oldest_first"),
		PersistTimeout:   timeout,
		LogLevel:         getEnv("LOG_LEVEL", "warn"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:    getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:        getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("UDHAAR_DATA_FILE is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("UDHAAR_CURRENCY is required")
	}
	if _, err := allocation.ParseCreditPolicy(c.CreditPolicy); err != nil {
		return fmt.Errorf("UDHAAR_CREDIT_POLICY: %w", err)
	}
	if _, err := allocation.PolicyByName(c.AllocationPolicy); err != nil {
		return fmt.Errorf("UDHAAR_ALLOCATION_POLICY: %w", err)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("UDHAAR_PERSIST_TIMEOUT must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
