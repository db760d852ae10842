package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value  V
	stored time.Time
}

// Memory is a thread-safe in-process map with an optional TTL.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates a store whose entries expire after ttl.
// A zero or negative ttl keeps entries forever.
func NewMemory[V any](ttl time.Duration) *Memory[V] {
	if ttl < 0 {
		ttl = 0
	}
	return &Memory[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory[V]) expired(e entry[V]) bool {
	return m.ttl > 0 && m.now().Sub(e.stored) > m.ttl
}

// Get returns the live value for key.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if m.expired(e) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && m.expired(cur) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous value.
func (m *Memory[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[V]{value: value, stored: m.now()}
}

// SetIfAbsent stores value only when key holds no live value. It reports
// whether the value was stored.
func (m *Memory[V]) SetIfAbsent(key string, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !m.expired(e) {
		return false
	}
	m.entries[key] = entry[V]{value: value, stored: m.now()}
	return true
}

// Delete removes key.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of entries, including expired ones not yet pruned.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Prune drops expired entries and returns how many were removed.
func (m *Memory[V]) Prune() int {
	if m.ttl == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (m *Memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry[V])
}

// Entries returns a copy of all live entries.
func (m *Memory[V]) Entries() map[string]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]V, len(m.entries))
	for k, e := range m.entries {
		if !m.expired(e) {
			out[k] = e.value
		}
	}
	return out
}

// InMemoryCache is the in-process translation cache.
type InMemoryCache struct {
	store *Memory[string]
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
// If ttl is 0 or negative, entries never expire.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{store: NewMemory[string](ttl)}
}

// Get retrieves a value from the cache.
func (c *InMemoryCache) Get(key string) (string, bool) {
	return c.store.Get(key)
}

// Set stores value unless key already holds a live translation.
func (c *InMemoryCache) Set(key string, value string) error {
	c.store.SetIfAbsent(key, value)
	return nil
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	return c.store.Len()
}

// Clear removes all entries from the cache.
func (c *InMemoryCache) Clear() {
	c.store.Clear()
}

// Snapshot returns all live entries.
func (c *InMemoryCache) Snapshot() (map[string]string, error) {
	return c.store.Entries(), nil
}

var (
	_ TranslationCache = (*InMemoryCache)(nil)
	_ Snapshotter      = (*InMemoryCache)(nil)
)
