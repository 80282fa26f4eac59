package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env is loaded
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	for _, key := range []string{"PORT", "DB_DRIVER", "LLM_PROVIDER", "RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS", "GOOGLE_API_KEY", "GOOGLE_API_KEY_FILE", "CACHE_RETENTION"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, ProviderOpenRouter, cfg.LLMProvider)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, 720*time.Hour, cfg.CacheRetention)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	dir := chdirTemp(t)
	keyFile := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(keyFile, []byte("  secret-key\n"), 0o600))

	t.Setenv("PORT", "9000")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY_FILE", keyFile)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("CACHE_RETENTION", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, "secret-key", cfg.GoogleAPIKey)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, 48*time.Hour, cfg.CacheRetention)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENROUTER_MODEL=test/model\n"), 0o600))
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("OPENROUTER_MODEL", "")
	require.NoError(t, os.Unsetenv("OPENROUTER_MODEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test/model", cfg.OpenRouterModel)
}

func TestLoad_Invalid(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	_, err := Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")

	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("CACHE_RETENTION", "-1h")
	_, err = Load()
	assert.ErrorContains(t, err, "CACHE_RETENTION")

	t.Setenv("CACHE_RETENTION", "")
	t.Setenv("LLM_PROVIDER", "claude")
	_, err = Load()
	assert.ErrorContains(t, err, `unknown LLM_PROVIDER "claude"`)
}
