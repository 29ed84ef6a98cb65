package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"receivables/internal/logger"
)

type Config struct {
	// Storage Configuration
	DatabasePath string

	// Reconciliation Configuration
	SettlementWorkers   int
	TopCustomers        int
	HeaderScanRows      int
	AutoCreateCustomers bool

	// Google Sheets Configuration (optional ingestion source)
	GoogleSheetURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DatabasePath:   getEnv("DATABASE_PATH", "receivables.db"),
		GoogleSheetURL: getEnv("GOOGLE_SHEET_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:      getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.SettlementWorkers, err = getEnvInt("SETTLEMENT_WORKERS", 4); err != nil {
		return nil, err
	}
	if config.TopCustomers, err = getEnvInt("TOP_CUSTOMERS", 3); err != nil {
		return nil, err
	}
	if config.HeaderScanRows, err = getEnvInt("HEADER_SCAN_ROWS", 10); err != nil {
		return nil, err
	}
	if config.AutoCreateCustomers, err = getEnvBool("AUTO_CREATE_CUSTOMERS", false); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.SettlementWorkers < 1 {
		return fmt.Errorf("SETTLEMENT_WORKERS must be at least 1, got %d", c.SettlementWorkers)
	}
	if c.TopCustomers < 1 {
		return fmt.Errorf("TOP_CUSTOMERS must be at least 1, got %d", c.TopCustomers)
	}
	if c.HeaderScanRows < 1 {
		return fmt.Errorf("HEADER_SCAN_ROWS must be at least 1, got %d", c.HeaderScanRows)
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

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}
