package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Bootstrap BootstrapConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// BootstrapConfig holds default bootstrap run settings
type BootstrapConfig struct {
	Replicates       int
	Workers          int // 0 means GOMAXPROCS
	Seed             int64
	Alpha            float64
	FailureThreshold float64
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Bootstrap: BootstrapConfig{
			Replicates:       getEnvInt("BOOTSTRAP_REPLICATES", 1000),
			Workers:          getEnvInt("BOOTSTRAP_WORKERS", 0),
			Seed:             int64(getEnvInt("BOOTSTRAP_SEED", 42)),
			Alpha:            getEnvFloat("BOOTSTRAP_ALPHA", 0.05),
			FailureThreshold: getEnvFloat("BOOTSTRAP_FAILURE_THRESHOLD", 0.10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bootstrap.Replicates < 1 {
		return fmt.Errorf("config: BOOTSTRAP_REPLICATES must be positive, got %d", c.Bootstrap.Replicates)
	}
	if c.Bootstrap.Alpha <= 0 || c.Bootstrap.Alpha >= 1 {
		return fmt.Errorf("config: BOOTSTRAP_ALPHA must be in (0,1), got %g", c.Bootstrap.Alpha)
	}
	if c.Bootstrap.FailureThreshold < 0 || c.Bootstrap.FailureThreshold > 1 {
		return fmt.Errorf("config: BOOTSTRAP_FAILURE_THRESHOLD must be in [0,1], got %g", c.Bootstrap.FailureThreshold)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
