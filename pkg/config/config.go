package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds server configuration.
type Config struct {
	Port        string `env:"PORT"         envDefault:"8080"`
	HealthPort  string `env:"HEALTH_PORT"  envDefault:"8081"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"INFO"`
	DatabaseURL string `env:"DATABASE_URL"`
	DataDir     string `env:"DATA_DIR"     envDefault:"data"`

	// AllowLegacyHashes keeps records written before length-prefixed digests verifiable.
	AllowLegacyHashes bool   `env:"RISKMATE_ALLOW_LEGACY_HASHES" envDefault:"true"`
	PolicyProfile     string `env:"RISKMATE_POLICY_PROFILE"`
	JWTPublicKey      string `env:"RISKMATE_JWT_PUBLIC_KEY"`
	// EvidenceMasterKey is the hex seed that per-tenant manifest keys are derived from.
	EvidenceMasterKey string `env:"RISKMATE_EVIDENCE_MASTER_KEY"`

	RedisAddr      string  `env:"REDIS_ADDR"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	OTelEnabled  bool   `env:"OTEL_ENABLED"                envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	Artifacts ArtifactConfig
}

// ArtifactConfig selects the evidence bundle backend.
type ArtifactConfig struct {
	StorageType string `env:"ARTIFACT_STORAGE_TYPE" envDefault:"fs"`
	S3Bucket    string `env:"ARTIFACT_S3_BUCKET"`
	S3Region    string `env:"ARTIFACT_S3_REGION"    envDefault:"us-east-1"`
	S3Endpoint  string `env:"ARTIFACT_S3_ENDPOINT"`
	S3Prefix    string `env:"ARTIFACT_S3_PREFIX"`
	GCSBucket   string `env:"ARTIFACT_GCS_BUCKET"`
	GCSPrefix   string `env:"ARTIFACT_GCS_PREFIX"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom loads configuration from environ, or from the process environment when environ is nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", cfg.RateLimitBurst)
	}
	return &cfg, nil
}

// LiteMode reports whether the server runs on the embedded SQLite store.
func (c *Config) LiteMode() bool {
	return c.DatabaseURL == ""
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean INFO.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
