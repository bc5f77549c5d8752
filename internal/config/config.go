// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string        // Base directory for the schedule cache database
	Port            int           // HTTP listen port
	LogLevel        string        // debug, info, warn, error
	DevMode         bool          // Pretty log output, verbose errors
	CacheTTL        time.Duration // In-memory schedule cache time-to-live
	PersistTTL      time.Duration // Persistent schedule store time-to-live
	CleanupSchedule string        // Cron expression for the cache cleanup job
}

// Load reads configuration from environment variables, with a .env file as
// an optional source.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("TAX_ENGINE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		CacheTTL:        time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		PersistTTL:      time.Duration(getEnvAsInt("PERSIST_TTL_HOURS", 24)) * time.Hour,
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@daily"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL)
	}
	if c.PersistTTL <= 0 {
		return fmt.Errorf("persist TTL must be positive, got %s", c.PersistTTL)
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
