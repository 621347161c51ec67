package realtime

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend 為單一程序內的快取儲存層；janitor 每個 sweep 週期清除超過保留時間的項目，
// 避免不再被查詢的設備鍵無限累積。
type MemoryBackend struct {
	items *gocache.Cache
}

// NewMemoryBackend 建立本機快取；retention 為項目保留時間，sweep 為清理週期。
func NewMemoryBackend(retention, sweep time.Duration) *MemoryBackend {
	if retention <= 0 {
		retention = time.Minute
	}
	if sweep <= 0 {
		sweep = retention
	}
	return &MemoryBackend{items: gocache.New(retention, sweep)}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	v, ok := b.items.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	entry, ok := v.(Entry)
	return entry, ok, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, entry Entry) error {
	b.items.SetDefault(key, entry)
	return nil
}

// Len 回傳目前保留的項目數（含已過期但尚未清除者）。
func (b *MemoryBackend) Len() int {
	return b.items.ItemCount()
}
