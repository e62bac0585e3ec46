package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrNotFound = errors.New("entry not found in cache")

type Config struct {
	TTL     time.Duration
	MaxSize int
}

// Stats are simple counters for cache behavior.
// These are intended for diagnostics and monitoring.
type Stats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// Memory is a process-local TTL cache keyed by K.
type Memory[K comparable, V any] struct {
	entries map[K]*record[V]
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type record[V any] struct {
	value    V
	cachedAt time.Time
}

// NewMemory creates a new in-memory cache
func NewMemory[K comparable, V any](c Config) *Memory[K, V] {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxSize == 0 {
		c.MaxSize = 500
	}

	return &Memory[K, V]{
		entries: make(map[K]*record[V]),
		ttl:     c.TTL,
		maxSize: c.MaxSize,
	}
}

// Get returns the cached value, or ErrNotFound when absent or older than the TTL.
func (c *Memory[K, V]) Get(key K) (V, error) {
	var zero V

	c.mu.RLock()
	rec, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, ErrNotFound
	}

	if time.Since(rec.cachedAt) > c.ttl {
		// expired
		atomic.AddInt64(&c.misses, 1)
		c.evictIfStale(key, rec)
		return zero, ErrNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return rec.value, nil
}

// evictIfStale removes key only if it still holds the record seen by Get.
func (c *Memory[K, V]) evictIfStale(key K, seen *record[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur == seen {
		delete(c.entries, key)
		atomic.AddInt64(&c.deletes, 1)
	}
}

// Set stores a value, evicting an arbitrary entry when full.
func (c *Memory[K, V]) Set(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, replacing := c.entries[key]; !replacing && len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			atomic.AddInt64(&c.evictions, 1)
			break
		}
	}

	c.entries[key] = &record[V]{
		value:    value,
		cachedAt: time.Now(),
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

// Delete removes a value from cache
func (c *Memory[K, V]) Delete(key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.entries[key]; existed {
		delete(c.entries, key)
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Clear removes all values from cache
func (c *Memory[K, V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*record[V])
	return nil
}

// Len returns the number of cached values
func (c *Memory[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics
func (c *Memory[K, V]) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
