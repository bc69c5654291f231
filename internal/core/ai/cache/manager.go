// Package cache 提供 LLM 回應的快取，支援記憶體與 Redis 兩種實作
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

// Cache 快取介面
// Get 未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key 將多段內容雜湊成固定長度的快取鍵
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(h.Sum(nil)))
}

// New 依設定建立快取，停用時回傳 nil
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case config.CacheDriverRedis:
		r, err := NewRedis(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return NewMemory(cfg), nil
	}
}

// Memory 以 go-cache 實作的記憶體快取
type Memory struct {
	store   *gocache.Cache
	maxSize int
	hits    atomic.Int64
	misses  atomic.Int64
	dropped atomic.Int64
}

// NewMemory 創建記憶體快取
func NewMemory(cfg config.CacheConfig) *Memory {
	m := &Memory{
		store:   gocache.New(cfg.TTL, cfg.CleanupInterval),
		maxSize: cfg.MaxSize,
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("driver", config.CacheDriverMemory),
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)
	return m
}

// Get 獲取緩存值
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.store.Get(key); ok {
		if s, ok := v.(string); ok {
			m.hits.Add(1)
			common.LogCacheHit(config.CacheDriverMemory)
			return s, nil
		}
	}
	m.misses.Add(1)
	common.LogCacheMiss(config.CacheDriverMemory)
	return "", common.ErrCacheMiss
}

// Set 設置緩存值，容量已滿且清不出空間時略過
func (m *Memory) Set(_ context.Context, key, value string) error {
	if m.maxSize > 0 && m.store.ItemCount() >= m.maxSize {
		m.store.DeleteExpired()
		if m.store.ItemCount() >= m.maxSize {
			m.dropped.Add(1)
			common.LogWarn("快取已滿", zap.Int("目前容量", m.store.ItemCount()))
			return nil
		}
	}
	m.store.Set(key, value, gocache.DefaultExpiration)
	return nil
}

// Stats 獲取緩存統計信息
func (m *Memory) Stats() map[string]interface{} {
	hits := m.hits.Load()
	misses := m.misses.Load()
	ratio := 0.0
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return map[string]interface{}{
		"size":      m.store.ItemCount(),
		"max_size":  m.maxSize,
		"hits":      hits,
		"misses":    misses,
		"dropped":   m.dropped.Load(),
		"hit_ratio": ratio,
	}
}

// Close 清空緩存
func (m *Memory) Close() error {
	m.store.Flush()
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.hits.Load()),
		zap.Int64("未命中次數", m.misses.Load()),
	)
	return nil
}

// ttlOrDefault Redis 需要明確的存活時間
func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}
