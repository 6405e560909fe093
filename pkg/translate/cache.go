package translate

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

const (
	// DefaultTTL is how long a cached translation stays servable.
	DefaultTTL = 30 * time.Minute
	// DefaultCapacity bounds the number of cached translations.
	DefaultCapacity = 50
)

// Cache memoizes translations and collapses concurrent identical requests
// into a single backend call. It is an explicit object owned by whoever
// constructs it; there is no package-level cache state.
//
// Eviction is least-recently-inserted: when the cache is full the oldest
// entry by insertion order is dropped, regardless of how recently it was
// read. Failures are never cached.
type Cache struct {
	translator Translator
	ttl        time.Duration
	capacity   int
	now        func() time.Time

	mu       sync.Mutex
	entries  map[string]cacheEntry
	order    []string
	inflight map[string]*inflightCall
}

type cacheEntry struct {
	result     Result
	insertedAt time.Time
}

type inflightCall struct {
	done   chan struct{}
	result *Result
	err    error
}

// NewCache wraps a translator with caching and in-flight deduplication.
// Non-positive ttl or capacity fall back to the defaults.
func NewCache(translator Translator, ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		translator: translator,
		ttl:        ttl,
		capacity:   capacity,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
		inflight:   make(map[string]*inflightCall),
	}
}

// SetClock overrides the cache's notion of now. Tests use this to step time
// across the TTL boundary without sleeping.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Key computes the cache key for a request: case-folded query, serialized
// filters and the cache salt. BypassCache is deliberately excluded so a
// bypassing caller still dedups against an identical in-flight request.
func Key(req Request) string {
	folded := cases.Fold().String(strings.TrimSpace(req.Query))
	filters, _ := json.Marshal(req.Filters)
	return folded + "\x1f" + string(filters) + "\x1f" + req.CacheSalt
}

// Translate serves the request from cache when possible, joins an identical
// in-flight call when one exists, and otherwise performs the backend call.
// At most one backend call per key is ever in flight.
func (c *Cache) Translate(ctx context.Context, req Request) (*Result, error) {
	key := Key(req)

	c.mu.Lock()
	if !req.BypassCache {
		if entry, ok := c.entries[key]; ok {
			if c.now().Sub(entry.insertedAt) < c.ttl {
				result := entry.result
				result.Source = SourceCache
				c.mu.Unlock()
				return &result, nil
			}
			c.evict(key)
		}
	}

	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, call.err
		}
		result := *call.result
		return &result, nil
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	result, err := c.translator.Translate(ctx, req)

	c.mu.Lock()
	call.result, call.err = result, err
	delete(c.inflight, key)
	if err == nil {
		c.insert(key, *result)
	}
	c.mu.Unlock()
	close(call.done)

	if err != nil {
		return nil, err
	}
	out := *result
	return &out, nil
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// insert stores a result and drops the oldest entries over capacity.
// Callers hold c.mu.
func (c *Cache) insert(key string, result Result) {
	if _, ok := c.entries[key]; ok {
		c.evict(key)
	}
	c.entries[key] = cacheEntry{result: result, insertedAt: c.now()}
	c.order = append(c.order, key)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// evict removes a single key. Callers hold c.mu.
func (c *Cache) evict(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
