package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gobayes/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine   EngineConfig
	Server   ServerConfig
	Log      LogConfig
	Data     DataConfig
	Database DatabaseConfig
}

// EngineConfig holds the settings handed to the study pipeline
type EngineConfig struct {
	Seed        int64
	Parallelism int
	HeavyLimit  int
	BootstrapN  int
	NoiseTrials int
	// Prior is a preset name, an "a:b" ratio or a number; empty means all presets
	Prior string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// DataConfig holds study input locations
type DataConfig struct {
	// Catalog replaces the embedded study catalog when set
	Catalog  string
	Workbook string
}

// DatabaseConfig holds the run ledger connection; an empty URL keeps reports
// in memory
type DatabaseConfig struct {
	URL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine:   loadEngineConfig(),
		Server:   loadServerConfig(),
		Log:      loadLogConfig(),
		Data:     loadDataConfig(),
		Database: loadDatabaseConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		Seed:        getEnvInt64OrDefault("GOBAYES_SEED", 42),
		Parallelism: getEnvIntOrDefault("GOBAYES_PARALLELISM", 4),
		HeavyLimit:  getEnvIntOrDefault("GOBAYES_HEAVY_LIMIT", 1),
		BootstrapN:  getEnvIntOrDefault("GOBAYES_BOOTSTRAP_N", 1000),
		NoiseTrials: getEnvIntOrDefault("GOBAYES_NOISE_TRIALS", 100),
		Prior:       getEnvOrDefault("GOBAYES_PRIOR", ""),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format: getEnvOrDefault("LOG_FORMAT", "console"),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Catalog:  getEnvOrDefault("GOBAYES_CATALOG", ""),
		Workbook: getEnvOrDefault("GOBAYES_WORKBOOK", ""),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL: getEnvOrDefault("DATABASE_URL", ""),
	}
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.Parallelism < 1:
		return errors.ConfigInvalid(fmt.Sprintf("GOBAYES_PARALLELISM must be at least 1, got %d", e.Parallelism))
	case e.HeavyLimit < 1:
		return errors.ConfigInvalid(fmt.Sprintf("GOBAYES_HEAVY_LIMIT must be at least 1, got %d", e.HeavyLimit))
	case e.BootstrapN < 1:
		return errors.ConfigInvalid(fmt.Sprintf("GOBAYES_BOOTSTRAP_N must be at least 1, got %d", e.BootstrapN))
	case e.NoiseTrials < 1:
		return errors.ConfigInvalid(fmt.Sprintf("GOBAYES_NOISE_TRIALS must be at least 1, got %d", e.NoiseTrials))
	}

	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT must be numeric, got %q", c.Server.Port))
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("LOG_FORMAT must be console or json, got %q", c.Log.Format))
	}
	return nil
}

// Addr is the listen address for the API server
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
