// Package cache holds the counter cache. Cached values are a read
// optimisation only: the source of truth for every count is the edge set or
// the comment log, and a missing or stale entry is always recoverable.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
)

// CounterCache stores derived counts keyed by counter.Key.
type CounterCache interface {
	// Get reports the cached value and whether it was present and unexpired.
	Get(ctx context.Context, key counter.Key) (int64, bool, error)
	// Set overwrites the value. A non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key counter.Key, value int64, ttl time.Duration) error
	Delete(ctx context.Context, keys ...counter.Key) error
	// Keys lists every key written and not yet deleted, including expired
	// ones.
	Keys(ctx context.Context) ([]counter.Key, error)
}

type entry struct {
	value     int64
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process CounterCache.
type Memory struct {
	mu      sync.RWMutex
	entries map[counter.Key]entry
	now     func() time.Time
}

var _ CounterCache = (*Memory)(nil)

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[counter.Key]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key counter.Key) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(m.now()) {
		return 0, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key counter.Key, value int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...counter.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]counter.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]counter.Key, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys, nil
}
