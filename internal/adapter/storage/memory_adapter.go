package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter is the in-process CacheRepository used when no Redis address
// is configured. Idempotency keys expire after the same TTL as in Redis.
type MemoryAdapter struct {
	mu   sync.Mutex
	keys map[string]time.Time // key -> expiry
	sold map[int64]int64
	now  func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		keys: make(map[string]time.Time),
		sold: make(map[int64]int64),
		now:  time.Now,
	}
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.keys[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.keys[key] = now.Add(idempotencyKeyTTL)
	return true, nil
}

func (m *MemoryAdapter) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *MemoryAdapter) RecordSale(ctx context.Context, productID int64, quantity int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sold[productID] += int64(quantity)
	return m.sold[productID], nil
}

func (m *MemoryAdapter) SoldUnits(ctx context.Context, productID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sold[productID], nil
}
