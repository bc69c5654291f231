package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

func testConfig(maxSize int) config.CacheConfig {
	return config.CacheConfig{
		Enabled:         true,
		Driver:          config.CacheDriverMemory,
		MaxSize:         maxSize,
		TTL:             time.Minute,
		CleanupInterval: time.Minute,
	}
}

func TestMemory_GetSet(t *testing.T) {
	defer goleak.VerifyNone(t,
		// go-cache 的 janitor 只在 GC 時停止
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)

	ctx := context.Background()
	m := NewMemory(testConfig(10))
	defer m.Close()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestMemory_SkipsWhenFull(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testConfig(2))
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err := m.Get(ctx, "c")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.Equal(t, int64(1), m.Stats()["dropped"])
}

func TestMemory_CloseFlushes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testConfig(10))
	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Close())

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
}

func TestKey(t *testing.T) {
	a := Key("llm", "model", "prompt")
	b := Key("llm", "model", "prompt")
	c := Key("llm", "modelprompt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "llm:")
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)
}
