// Package config loads the server configuration from the environment
// (optionally seeded from a .env file) and the heuristic thresholds from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/annafiu/twabillsplitter/internal/retry"
)

type Config struct {
	// HTTP Server
	Port       string
	StaticPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Session storage
	DBPath               string
	SessionSecret        string
	SessionTTL           time.Duration
	SessionPurgeInterval time.Duration

	// Extraction
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	ExtractTimeout time.Duration
	MaxUploadBytes int64

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
	RetryMaxDelay    time.Duration

	// HeuristicsConfig is the path of the thresholds YAML file. Empty means
	// built-in defaults.
	HeuristicsConfig string
}

// Load reads the configuration. Values already in the environment win over
// the .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", "8080"),
		StaticPath: getEnv("STATIC_PATH", "../frontend/static"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DBPath:               getEnv("DB_PATH", "./data/sessions.db"),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionTTL:           getEnvDuration("SESSION_TTL", 6*time.Hour),
		SessionPurgeInterval: getEnvDuration("SESSION_PURGE_INTERVAL", 5*time.Minute),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", 90*time.Second),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
		RetryMultiplier:  getEnvFloat("RETRY_MULTIPLIER", 2),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 8*time.Second),

		HeuristicsConfig: getEnv("HEURISTICS_CONFIG", ""),
	}
}

// RetryPolicy returns the configured policy. Retryable is left to the caller.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		Multiplier:  c.RetryMultiplier,
		MaxDelay:    c.RetryMaxDelay,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}
	if c.SessionSecret == "" {
		errors = append(errors, "SESSION_SECRET is required")
	} else if len(c.SessionSecret) < 16 {
		errors = append(errors, "SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionPurgeInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid purge interval %v: must be at least 1 second", c.SessionPurgeInterval))
	}

	if c.GeminiModel == "" {
		errors = append(errors, "GEMINI_MODEL cannot be empty")
	}
	if c.ExtractTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid extract timeout %v: must be at least 1 second", c.ExtractTimeout))
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if c.RetryMaxAttempts < 1 || c.RetryMaxAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be between 1 and 10", c.RetryMaxAttempts))
	}
	if c.RetryBaseDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry base delay %v: cannot be negative", c.RetryBaseDelay))
	}
	if c.RetryMultiplier < 1 {
		errors = append(errors, fmt.Sprintf("invalid retry multiplier %v: must be at least 1", c.RetryMultiplier))
	}
	if c.RetryMaxDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry max delay %v: cannot be negative", c.RetryMaxDelay))
	}

	if c.HeuristicsConfig != "" {
		if _, err := os.Stat(c.HeuristicsConfig); err != nil {
			errors = append(errors, fmt.Sprintf("heuristics config not readable: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
