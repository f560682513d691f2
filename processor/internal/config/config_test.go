package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROCESSOR_PROCESSING_BUCKET", "avl-staging")
	t.Setenv("PROCESSOR_DATABASE_URL", "postgres://localhost:5432/avl")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, 8, cfg.Processing.EnrichmentConcurrency)
	assert.Equal(t, 72*time.Hour, cfg.Processing.DiagnosticTTL)
	assert.True(t, cfg.Processing.EnableCancellations)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRequiresBucketAndDatabase(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing.bucket")

	t.Setenv("PROCESSOR_PROCESSING_BUCKET", "avl-staging")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROCESSOR_PROCESSING_BUCKET", "avl-staging")
	t.Setenv("PROCESSOR_DATABASE_URL", "postgres://db:5432/avl")
	t.Setenv("PROCESSOR_SERVER_PORT", "9091")
	t.Setenv("PROCESSOR_PROCESSING_ENRICHMENT_CONCURRENCY", "4")
	t.Setenv("PROCESSOR_PROCESSING_DIAGNOSTIC_TTL", "24h")
	t.Setenv("PROCESSOR_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "avl-staging", cfg.Processing.Bucket)
	assert.Equal(t, "postgres://db:5432/avl", cfg.Database.URL)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Processing.EnrichmentConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.Processing.DiagnosticTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
