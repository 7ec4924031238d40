package config

import (
	"fmt"
	"os"
	"strconv"

	"wdlsync/pkg/file"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults.
//
// Environment Variables:
// API Configuration:
// - WDL_API_KEY: API key for the WDL API
// - WDL_API_KEY_FILE: file whose first line holds the API key (used when
//   WDL_API_KEY is unset)
// - WDL_API_URL: API base URL (default: https://api.welldatalabs.com)
// - WDL_TIMEOUT: request timeout in seconds (default: 30)
// - WDL_MAX_ATTEMPTS: attempts per API call (default: 3)
// - WDL_RETRY_DELAY: fallback delay in seconds between attempts (default: 70)
//
// Sync Configuration:
// - WDL_DB_PATH: SQLite database path (default: sqlite/wdl-api.db)
// - WDL_OUTPUT_DIR: directory for per-second CSV files (default: persecfiles)
// - WDL_SAVE_RAW / WDL_SAVE_FORMATTED / WDL_SAVE_UNITS: which CSV flavors to
//   write per job (default: all true)
// - SYNC_CRON_EXPR: cron expression for scheduled runs (empty: run once)
//
// Logging Configuration:
// - LOG_LEVEL: debug/info/warn/error (default: info)
// - LOG_FILE: log file path for scheduled mode (default: stdout)

type Config struct {
	API  APIConfig  `json:"api"`
	Sync SyncConfig `json:"sync"`
	Log  LogConfig  `json:"log"`
}

// APIConfig holds the configuration for the WDL API client.
type APIConfig struct {
	APIKey      string `json:"api_key"`
	APIKeyFile  string `json:"api_key_file"`
	APIURL      string `json:"api_url"`
	Timeout     int    `json:"timeout"`
	MaxAttempts int    `json:"max_attempts"`
	RetryDelay  int    `json:"retry_delay"`
}

// SyncConfig holds the configuration for the sync workflow.
type SyncConfig struct {
	DBPath        string `json:"db_path"`
	OutputDir     string `json:"output_dir"`
	SaveRaw       bool   `json:"save_raw"`
	SaveFormatted bool   `json:"save_formatted"`
	SaveUnits     bool   `json:"save_units"`
	CronExpr      string `json:"cron_expr"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		API: APIConfig{
			APIKey:      getEnvString("WDL_API_KEY", ""),
			APIKeyFile:  getEnvString("WDL_API_KEY_FILE", ""),
			APIURL:      getEnvString("WDL_API_URL", "https://api.welldatalabs.com"),
			Timeout:     getEnvInt("WDL_TIMEOUT", 30),
			MaxAttempts: getEnvInt("WDL_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvInt("WDL_RETRY_DELAY", 70),
		},
		Sync: SyncConfig{
			DBPath:        getEnvString("WDL_DB_PATH", "sqlite/wdl-api.db"),
			OutputDir:     getEnvString("WDL_OUTPUT_DIR", "persecfiles"),
			SaveRaw:       getEnvBool("WDL_SAVE_RAW", true),
			SaveFormatted: getEnvBool("WDL_SAVE_FORMATTED", true),
			SaveUnits:     getEnvBool("WDL_SAVE_UNITS", true),
			CronExpr:      getEnvString("SYNC_CRON_EXPR", ""),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if config.API.APIKey == "" && config.API.APIKeyFile != "" {
		key, err := file.FirstLine(config.API.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read api key file: %w", err)
		}
		config.API.APIKey = key
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set.
func (c *Config) validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("WDL_API_KEY or WDL_API_KEY_FILE is required")
	}
	if c.API.MaxAttempts <= 0 {
		return fmt.Errorf("WDL_MAX_ATTEMPTS must be positive")
	}
	if c.API.RetryDelay < 0 {
		return fmt.Errorf("WDL_RETRY_DELAY must be non-negative")
	}
	if c.Sync.DBPath == "" {
		return fmt.Errorf("WDL_DB_PATH is required")
	}
	if c.Sync.OutputDir == "" {
		return fmt.Errorf("WDL_OUTPUT_DIR is required")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
