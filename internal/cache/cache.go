package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is a byte-oriented key/value cache with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, prefix string) error
}

// entry wraps a cached value with expiry and insertion order tracking.
type entry struct {
	value     []byte
	expiry    time.Time
	insertIdx int64
}

// MemoryStore is an in-process Store bounded by maxEntries.
// Thread-safe with sync.RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	items      map[string]entry
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// NewMemory creates a MemoryStore holding at most maxEntries values.
func NewMemory(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryStore{
		items:      make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a cached value if found and not expired.
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if c.now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set stores a value. Evicts the oldest entry if at capacity.
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		value:     value,
		expiry:    c.now().Add(ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return nil
	}
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = e
	return nil
}

// Delete removes every entry whose key starts with prefix.
func (c *MemoryStore) Delete(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
