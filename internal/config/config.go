// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FormMode selects how form fields are judged present.
type FormMode string

const (
	// FormModeTruthy treats zero and NaN as missing values
	FormModeTruthy FormMode = "truthy"
	// FormModePresence only requires a parseable value, zero included
	FormModePresence FormMode = "presence"
)

// Config holds application configuration
type Config struct {
	APIURL      string        // Base URL of the exchange backend
	HTTPTimeout time.Duration // Per-request timeout
	LogLevel    string
	LogFile     string        // TUI log destination (the screen is owned by the terminal view)
	CachePath   string        // Snapshot cache database, empty disables caching (always absolute when set)
	CacheTTL    time.Duration // Freshness window of cached snapshots
	FormMode    FormMode
	Location    *time.Location // Timezone used when formatting trade timestamps
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:      strings.TrimRight(getEnv("STOCKDESK_API_URL", "http://localhost:5000"), "/"),
		HTTPTimeout: getEnvAsDuration("STOCKDESK_HTTP_TIMEOUT", 10*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("STOCKDESK_LOG_FILE", "stockdesk.log"),
		CacheTTL:    getEnvAsDuration("STOCKDESK_CACHE_TTL", 10*time.Minute),
		FormMode:    FormMode(strings.ToLower(getEnv("STOCKDESK_FORM_MODE", string(FormModeTruthy)))),
		Location:    time.Local,
	}

	if path := getEnv("STOCKDESK_CACHE_PATH", ""); path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache path: %w", err)
		}
		cfg.CachePath = absPath
	}

	if tz := getEnv("STOCKDESK_TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid STOCKDESK_TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid STOCKDESK_API_URL %q", c.APIURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("STOCKDESK_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	switch c.FormMode {
	case FormModeTruthy, FormModePresence:
	default:
		return fmt.Errorf("unknown STOCKDESK_FORM_MODE %q (use truthy|presence)", c.FormMode)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
