package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

// Redis 以 Redis 實作的快取，多個 API 實例可共用
type Redis struct {
	client *redis.Client
	cfg    config.CacheConfig
}

// NewRedis 創建 Redis 快取並測試連線
func NewRedis(cfg config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("driver", config.CacheDriverRedis),
		zap.String("addr", cfg.RedisAddr),
		zap.Duration("存活時間", cfg.TTL),
	)
	return NewRedisWithClient(client, cfg), nil
}

// NewRedisWithClient 使用既有的 client 建立快取
func NewRedisWithClient(client *redis.Client, cfg config.CacheConfig) *Redis {
	return &Redis{client: client, cfg: cfg}
}

// Get 獲取緩存
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss(config.CacheDriverRedis)
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	common.LogCacheHit(config.CacheDriverRedis)
	return val, nil
}

// Set 設置緩存
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, ttlOrDefault(r.cfg.TTL)).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉連線
func (r *Redis) Close() error {
	return r.client.Close()
}
