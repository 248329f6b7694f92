package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	cfg := Load()

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 5, cfg.Search.EnrichmentConcurrency)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Empty(t, cfg.Embedding.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("GOOGLE_MAPS_RPS", "2.5")
	t.Setenv("SYNC_WORKER_ENABLED", "false")
	t.Setenv("SYNC_BATCH_SIZE", "not-a-number")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 2.5, cfg.GoogleMaps.RequestsPerSecond)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.True(t, cfg.App.IsProduction())
}
