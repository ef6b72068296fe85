package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

// TestLoad_Defaults verifies the server boots in lite mode with no environment.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "8081", cfg.HealthPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "data", cfg.DataDir)
	assert.True(t, cfg.LiteMode())
	assert.True(t, cfg.AllowLegacyHashes, "legacy records stay verifiable by default")
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTelEndpoint)
	assert.Equal(t, "fs", cfg.Artifacts.StorageType)
	assert.Equal(t, "us-east-1", cfg.Artifacts.S3Region)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"PORT":                         "9090",
		"LOG_LEVEL":                    "DEBUG",
		"DATABASE_URL":                 "postgres://production:5432/db",
		"RISKMATE_ALLOW_LEGACY_HASHES": "false",
		"REDIS_ADDR":                   "redis:6379",
		"RATE_LIMIT_RPS":               "2.5",
		"OTEL_ENABLED":                 "true",
		"ARTIFACT_STORAGE_TYPE":        "s3",
		"ARTIFACT_S3_BUCKET":           "evidence",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.LiteMode())
	assert.False(t, cfg.AllowLegacyHashes)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "s3", cfg.Artifacts.StorageType)
	assert.Equal(t, "evidence", cfg.Artifacts.S3Bucket)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "7070")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := config.LoadFrom(map[string]string{"RATE_LIMIT_RPS": "fast"})
	assert.Error(t, err)

	_, err = config.LoadFrom(map[string]string{"RATE_LIMIT_BURST": "0"})
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		cfg := &config.Config{LogLevel: raw}
		assert.Equal(t, want, cfg.SlogLevel(), raw)
	}
}

func TestLoadSigningProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile_sox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: sox
allowed_roles: [" Reviewer ", approver]
rule: run.attested
require_attestation: true
allow_legacy: false
`), 0o600))

	profile, err := config.LoadSigningProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "sox", profile.Name)
	assert.Equal(t, []string{"reviewer", "approver"}, profile.AllowedRoles)
	assert.Equal(t, "run.attested", profile.Rule)
	assert.True(t, profile.RequireAttestation)
	assert.False(t, profile.LegacyAllowed(true))
}

func TestLoadSigningProfile_Errors(t *testing.T) {
	_, err := config.LoadSigningProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.ParseSigningProfile([]byte("rule: true\n"))
	assert.ErrorContains(t, err, "name is required")

	_, err = config.ParseSigningProfile([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestLegacyAllowed_Fallback(t *testing.T) {
	var nilProfile *config.SigningProfile
	assert.True(t, nilProfile.LegacyAllowed(true))

	profile := &config.SigningProfile{Name: "default"}
	assert.False(t, profile.LegacyAllowed(false))
}
