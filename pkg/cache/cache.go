package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is applied when Set is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// KeyNamespace prefixes every generated key so wrapped analytics methods
// never collide with other cache users.
const KeyNamespace = "analytics"

// Entry is a stored value with its expiry instant. Entries are owned by the
// cache; callers must treat returned values as read-only snapshots.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a process-wide in-memory store with per-entry TTL eviction.
// All operations are safe for concurrent use; a single coarse lock is enough
// because analytics is a low-QPS path.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New creates an empty cache. A non-positive defaultTTL falls back to DefaultTTL.
func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		stopSweep:  make(chan struct{}),
	}
}

// Set stores value under key, overwriting any existing entry.
// A non-positive ttl uses the cache default.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Get returns the stored value if present and unexpired. Expired entries are
// removed on access so the cache self-heals without a background sweep.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, stillThere := c.entries[key]; stillThere && time.Now().After(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.Data, true
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Cleanup sweeps all expired entries and returns how many were removed.
// Correctness does not depend on it; Get already discards stale entries.
func (c *Cache) Cleanup() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper runs Cleanup on the given interval until ctx is cancelled or
// StopSweeper is called.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopSweep:
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// StopSweeper stops a running background sweeper. Safe to call multiple times.
func (c *Cache) StopSweeper() {
	c.sweepOnce.Do(func() { close(c.stopSweep) })
}

// GetOrCompute returns the cached value for key, or executes fn and caches its
// result. Errors from fn are returned unchanged and never cached, so a failed
// computation is retried on the next call. Concurrent misses for the same key
// may each run fn; last write wins, which is fine for idempotent aggregations.
// The second return value reports whether the value came from the cache.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (interface{}, error)) (interface{}, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}

	c.Set(key, value, ttl)
	return value, false, nil
}

// GenerateKey builds a deterministic cache key from a method name and its
// parameters. Parameters are serialized with lexicographically sorted keys so
// two semantically equal parameter sets produce the same key regardless of
// construction order.
func GenerateKey(method string, params interface{}) string {
	return fmt.Sprintf("%s:%s:%s", KeyNamespace, method, canonicalize(params))
}

func canonicalize(params interface{}) string {
	if params == nil {
		return "{}"
	}

	raw, err := json.Marshal(params)
	if err != nil {
		// Unserializable params still need a stable key.
		return fmt.Sprintf("%+v", params)
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		// Not an object (scalar or array); the JSON form is already canonical.
		return string(raw)
	}

	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", k, asMap[k])
	}
	b.WriteByte('}')
	return b.String()
}
