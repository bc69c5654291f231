package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ProviderOpenRouter, cfg.AI.Provider)
	assert.Equal(t, cfg.AI.Model, cfg.AI.VisionModel)
	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, int64(8*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, 40, cfg.Baseline.MaxSuggestions)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Empty(t, cfg.Database.DSN)
	assert.True(t, cfg.Database.UseRPC)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", " Gemini ")
	t.Setenv("GEMINI_API_KEY", "gm-test-key-123456")
	t.Setenv("LLM_MODEL", "gemini-1.5-flash")
	t.Setenv("LLM_VISION_MODEL", "gemini-1.5-pro")
	t.Setenv("APP_BASELINE_MAX_SUGGESTIONS", "12")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DATABASE_URL", "postgres://localhost/groceries")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gm-test-key-123456", cfg.AI.APIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.Model)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.VisionModel)
	assert.Equal(t, 12, cfg.Baseline.MaxSuggestions)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "postgres://localhost/groceries", cfg.Database.DSN)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mystery")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ai provider")
}

func TestLoadConfig_RejectsUnknownCacheDriver(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memcached")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache driver")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-o...wxyz", maskAPIKey("sk-or-abcdefghijklmnopqrstuvwxyz"))
}
