// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, YAML overrides, env overrides, and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, float64(5), cfg.RequestsPerSec)
	assert.Equal(t, 200, cfg.PageSize)
	assert.Equal(t, 10000, cfg.ResultCap)
	assert.Equal(t, 2*time.Hour, cfg.OverlapBuffer)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.Incremental)
}

func TestYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hublake.yaml")
	body := "page_size: 100\nstart_date: \"2024-06-01\"\nincremental: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "2024-06-01", cfg.StartDate)
	assert.False(t, cfg.Incremental)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("START_DATE", "2023-01-15")
	t.Setenv("INCREMENTAL_SYNC", "false")
	t.Setenv("OVERLAP_BUFFER_HOURS", "4")
	t.Setenv("HUBSPOT_TOKEN_TTL_SECONDS", "120")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2023-01-15", cfg.StartDate)
	assert.False(t, cfg.Incremental)
	assert.Equal(t, 4*time.Hour, cfg.OverlapBuffer)
	assert.Equal(t, 2*time.Minute, cfg.TokenTTL)
}

func TestEnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hublake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("start_date: \"2024-06-01\"\n"), 0o600))
	t.Setenv("START_DATE", "2024-12-31")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", cfg.StartDate)
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	require.NoError(t, os.WriteFile(path, []byte("page_size: 500\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err, "page_size over the API maximum must be rejected")

	require.NoError(t, os.WriteFile(path, []byte("start_date: \"June 2024\"\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err, "malformed start_date must be rejected")
}
