// Package cache 提供即時 OEE 快取的 Redis 共享儲存層，讓多個 API 實例共用同一份結果。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oee-monitor/internal/application/realtime"
	"oee-monitor/internal/infrastructure/config"

	"github.com/redis/go-redis/v9"
)

// RedisBackend 以 JSON 儲存 realtime.Entry；鍵值保留 retention 後由 Redis 自動清除。
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisBackend 建立 Redis 連線並確認可用。
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig, retention time.Duration) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisBackend(client, cfg.KeyPrefix, retention), nil
}

func newRedisBackend(client *redis.Client, prefix string, retention time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "oee:realtime"
	}
	if retention <= 0 {
		retention = time.Minute
	}
	return &RedisBackend{client: client, keyPrefix: prefix, retention: retention}
}

// Close 關閉 Redis 連線。
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(k string) string {
	return b.keyPrefix + ":" + k
}

func (b *RedisBackend) Get(ctx context.Context, key string) (realtime.Entry, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return realtime.Entry{}, false, nil
	}
	if err != nil {
		return realtime.Entry{}, false, err
	}
	var entry realtime.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return realtime.Entry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return entry, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, entry realtime.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(key), data, b.retention).Err()
}
