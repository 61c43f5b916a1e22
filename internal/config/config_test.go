package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadAppliesDefaults(t *testing.T) {
	unsetForTest(t, "PORT", "REPORT_CACHE_TTL", "COMPANY_ADDRESS", "TRUST_PROXY")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 30*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, "DilmaSuperPOS", cfg.CompanyName)
	assert.Equal(t, "Dubai, UAE", cfg.CompanyAddress)
	assert.Equal(t, "AED", cfg.Currency)
	assert.Equal(t, 80, cfg.PrintWidth)
	assert.False(t, cfg.TrustProxy)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\nACCESS_TOKEN_TTL=5m\n"), 0o600))
	// godotenv never overrides variables that are already set.
	unsetForTest(t, "PORT", "ACCESS_TOKEN_TTL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
