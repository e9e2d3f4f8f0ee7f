package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annafiu/twabillsplitter/internal/normalize"
)

func validConfig() *Config {
	return &Config{
		Port:                 "8080",
		LogFormat:            "text",
		DBPath:               "./data/sessions.db",
		SessionSecret:        "0123456789abcdef",
		SessionTTL:           6 * time.Hour,
		SessionPurgeInterval: 5 * time.Minute,
		GeminiModel:          "gemini-2.0-flash",
		ExtractTimeout:       90 * time.Second,
		MaxUploadBytes:       10 << 20,
		RetryMaxAttempts:     3,
		RetryBaseDelay:       time.Second,
		RetryMultiplier:      2,
		RetryMaxDelay:        8 * time.Second,
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no .env file is picked up.
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "DB_PATH", "SESSION_TTL", "GEMINI_MODEL", "RETRY_MAX_ATTEMPTS", "MAX_UPLOAD_BYTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/sessions.db", cfg.DBPath)
	assert.Equal(t, 6*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 90*time.Second, cfg.ExtractTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 2.0, cfg.RetryMultiplier)
}

func TestLoad_FromEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("SESSION_SECRET=from-dotenv-secret\nPORT=9999\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("RETRY_MULTIPLIER", "1.5")
	t.Setenv("RETRY_MAX_ATTEMPTS", "not-a-number")
	os.Unsetenv("SESSION_SECRET")
	t.Cleanup(func() { os.Unsetenv("SESSION_SECRET") })

	cfg := Load()
	assert.Equal(t, "7070", cfg.Port, "environment wins over .env")
	assert.Equal(t, "from-dotenv-secret", cfg.SessionSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 1.5, cfg.RetryMultiplier)
	assert.Equal(t, 3, cfg.RetryMaxAttempts, "unparseable values fall back to the default")

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.BaseDelay)
	assert.Nil(t, p.Retryable)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"missing secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET is required"},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "at least 16 characters"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"ttl", func(c *Config) { c.SessionTTL = time.Second }, "invalid session TTL"},
		{"attempts", func(c *Config) { c.RetryMaxAttempts = 0 }, "invalid retry attempts"},
		{"multiplier", func(c *Config) { c.RetryMultiplier = 0.5 }, "invalid retry multiplier"},
		{"upload size", func(c *Config) { c.MaxUploadBytes = 0 }, "invalid max upload size"},
		{"heuristics file", func(c *Config) { c.HeuristicsConfig = "/does/not/exist.yml" }, "heuristics config not readable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "x"
	cfg.SessionSecret = ""
	cfg.RetryMaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "retry attempts")
}

func writeHeuristics(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestHeuristicsHolder_Defaults(t *testing.T) {
	holder, err := NewHeuristicsHolder("")
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultThresholds(), holder.Thresholds())

	holder, err = NewHeuristicsHolder(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultThresholds(), holder.Thresholds())
}

func TestHeuristicsHolder_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yml")
	writeHeuristics(t, path, "heuristics:\n  small_amount_ceiling: 500\n  percent_tax_ceiling: 0\n")

	holder, err := NewHeuristicsHolder(path)
	require.NoError(t, err)

	got := holder.Thresholds()
	want := normalize.DefaultThresholds()
	want.SmallAmountCeiling = 500
	want.PercentTaxCeiling = 0
	assert.Equal(t, want, got)
}

func TestHeuristicsHolder_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yml")
	writeHeuristics(t, path, "heuristics:\n  scale_factor: 1\n")

	_, err := NewHeuristicsHolder(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scale_factor")
}

func TestHeuristicsHolder_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yml")
	writeHeuristics(t, path, "heuristics:\n  scale_factor: 1000\n")

	holder, err := NewHeuristicsHolder(path)
	require.NoError(t, err)
	require.Equal(t, 1000.0, holder.Thresholds().ScaleFactor)

	// An invalid edit is ignored.
	writeHeuristics(t, path, "heuristics:\n  scale_factor: 0\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1000.0, holder.Thresholds().ScaleFactor)

	writeHeuristics(t, path, "heuristics:\n  scale_factor: 100\n")
	assert.Eventually(t, func() bool {
		return holder.Thresholds().ScaleFactor == 100
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, holder.Reloads(), int64(1))
}
