package cache

import (
	"log"
	"sync"
	"time"

	"github.com/bluele/gcache"
)

// ============================================================================
// LRU CACHE
// ============================================================================
// Typed view over a gcache LRU with optional expiration. Used for scraped
// HTML pages and formatted itineraries.
//
//   pages := cache.New[string](512, 6*time.Hour)
//   pages.Set(url, html)
//   if html, ok := pages.Get(url); ok { ... }

const DefaultSize = 512

// Cache holds values of type V. The zero value is not usable; call New.
type Cache[V any] struct {
	c gcache.Cache
}

// New builds an LRU of size entries (DefaultSize when size <= 0).
// ttl <= 0 keeps entries until evicted.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &Cache[V]{c: b.Build()}
}

// Get returns the value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	v, err := c.c.Get(key)
	if err != nil {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (c *Cache[V]) Set(key string, value V) {
	if err := c.c.Set(key, value); err != nil {
		log.Printf("⚠️ [CACHE] Set %s failed: %v", key, err)
	}
}

func (c *Cache[V]) Delete(key string) {
	c.c.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.c.Purge()
}

// Len counts live entries.
func (c *Cache[V]) Len() int {
	return c.c.Len(true)
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Items   int   `json:"items"`
	Expired int   `json:"expired"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (c *Cache[V]) Stats() Stats {
	all := c.c.Len(false)
	return Stats{
		Items:   all,
		Expired: all - c.c.Len(true),
		Hits:    int64(c.c.HitCount()),
		Misses:  int64(c.c.MissCount()),
	}
}

// ============================================================================
// REGISTRY
// ============================================================================

// StatsSource is anything that can report cache statistics.
type StatsSource interface {
	Stats() Stats
}

// Registry collects named caches for the status endpoint.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]StatsSource
}

func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]StatsSource)}
}

func (r *Registry) Register(name string, s StatsSource) {
	r.mu.Lock()
	r.caches[name] = s
	r.mu.Unlock()
}

// All returns the stats of every registered cache.
func (r *Registry) All() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stats, len(r.caches))
	for name, s := range r.caches {
		out[name] = s.Stats()
	}
	return out
}
