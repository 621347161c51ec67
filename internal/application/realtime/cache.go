package realtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL    = 10 * time.Second
	DefaultBucket = 10 * time.Second
)

// 快取請求結果，供指標使用。
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Entry 為快取中的一筆即時結果與寫入時間。
type Entry struct {
	Snapshot Snapshot  `json:"snapshot"`
	StoredAt time.Time `json:"stored_at"`
}

// Backend 為快取儲存層（本機 go-cache 或共享 Redis）。查無資料時回傳 found=false。
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Observer 接收快取命中統計。
type Observer interface {
	CacheRequest(result string)
}

type nopObserver struct{}

func (nopObserver) CacheRequest(string) {}

// Cache 以「設備 + 時間桶」為鍵記憶即時計算結果，讀取時依 TTL 判斷是否過期。
// 同一鍵的並行未命中會合併為一次計算。
type Cache struct {
	backend  Backend
	ttl      time.Duration
	bucket   time.Duration
	now      func() time.Time
	observer Observer
	logger   *zap.Logger
	group    singleflight.Group
}

// CacheOption 調整 Cache 的可選依賴。
type CacheOption func(*Cache)

// WithCacheObserver 設定命中統計收集器。
func WithCacheObserver(obs Observer) CacheOption {
	return func(c *Cache) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithCacheLogger 設定 logger。
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache 建立快取；ttl、bucket 非正時使用預設值，now 為 nil 時使用 time.Now。
func NewCache(backend Backend, ttl, bucket time.Duration, now func() time.Time, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		backend:  backend,
		ttl:      ttl,
		bucket:   bucket,
		now:      now,
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now 回傳快取使用的時間來源目前時刻。
func (c *Cache) Now() time.Time {
	return c.now()
}

// Key 組出快取鍵：machineID 與截斷至時間桶的 Unix 秒數。
func (c *Cache) Key(machineID string, at time.Time) string {
	return fmt.Sprintf("%s:%d", machineID, at.Truncate(c.bucket).Unix())
}

// GetOrCompute 讀取目前時間桶的結果；不存在或已超過 TTL 時呼叫 compute 並寫回目前時間桶。
// 第二個回傳值表示是否命中快取。儲存層錯誤只記錄，不影響回傳結果。
func (c *Cache) GetOrCompute(ctx context.Context, machineID string, compute func(ctx context.Context, now time.Time) (Snapshot, error)) (Snapshot, bool, error) {
	now := c.now()
	key := c.Key(machineID, now)

	if entry, ok := c.lookup(ctx, key, now); ok {
		c.observer.CacheRequest(ResultHit)
		return entry.Snapshot, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// 合併等待期間可能已有其他請求寫入。
		if entry, ok := c.lookup(ctx, key, now); ok {
			return entry.Snapshot, nil
		}
		snap, err := compute(ctx, now)
		if err != nil {
			return Snapshot{}, err
		}
		if err := c.backend.Set(ctx, key, Entry{Snapshot: snap, StoredAt: now}); err != nil {
			c.logger.Warn("realtime cache set failed", zap.String("key", key), zap.Error(err))
		}
		return snap, nil
	})
	if err != nil {
		c.observer.CacheRequest(ResultError)
		return Snapshot{}, false, err
	}
	c.observer.CacheRequest(ResultMiss)
	return v.(Snapshot), false, nil
}

func (c *Cache) lookup(ctx context.Context, key string, now time.Time) (Entry, bool) {
	entry, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("realtime cache get failed", zap.String("key", key), zap.Error(err))
		return Entry{}, false
	}
	if !found || now.Sub(entry.StoredAt) >= c.ttl {
		return Entry{}, false
	}
	return entry, true
}
