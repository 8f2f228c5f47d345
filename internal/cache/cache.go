// Package cache provides a short-lived memoization layer for resolve lookups.
//
// The [Cache] interface is injected rather than held as process-global state
// so tests can supply deterministic fakes and deployments can swap in a shared
// implementation. [MemoryCache] is the default: a mutex-guarded map with lazy
// expiry: expired entries are treated as absent on read but never proactively
// evicted.
package cache

import (
	"sync"
	"time"
)

// Entry is one cached resolution: a value snapshot and its expiry instant.
type Entry struct {
	Key       string
	Value     any
	ExpiresAt time.Time
}

// Cache defines the memoization contract consumed by the Resolver.
type Cache interface {
	// Get returns the entry for key only while it is unexpired. An expired
	// entry is reported as absent.
	Get(key string) (Entry, bool)

	// Put stores or unconditionally overwrites the entry for key.
	Put(key string, value any, ttl time.Duration)
}

// MemoryCache is an in-process Cache backed by a map.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns the entry for key if present and unexpired. Expired entries are
// left in place for the next Put to overwrite.
func (m *MemoryCache) Get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return Entry{}, false
	}
	if !m.now().Before(entry.ExpiresAt) {
		return Entry{}, false
	}
	return entry, true
}

// Put stores value under key with the given ttl, overwriting any existing
// entry.
func (m *MemoryCache) Put(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: m.now().Add(ttl),
	}
}
