package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Cache is a fingerprinted context cache: an insertion/recency-ordered map
// with size and TTL eviction and targeted invalidation by contributing
// memory id.
type Cache struct {
	mu      sync.Mutex
	cfg     types.CacheConfig
	entries map[string]*list.Element
	order   *list.List // front = LRU, back = MRU
	stats   types.CacheStats
}

// New constructs a Cache from cfg.
func New(cfg types.CacheConfig) *Cache {
	return &Cache{cfg: cfg, entries: make(map[string]*list.Element), order: list.New()}
}

// Get looks up key, moving a hit to the most-recently-used end and
// updating its last-accessed-at. A disabled cache always misses.
func (c *Cache) Get(key string, now time.Time) (*types.ContextResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled {
		c.stats.Misses++
		return nil, false
	}

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry := el.Value.(*types.CacheEntry)
	if c.cfg.TTLMs > 0 && now.Sub(entry.CreatedAt) > time.Duration(c.cfg.TTLMs)*time.Millisecond {
		c.removeElement(el)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccessedAt = now
	c.order.MoveToBack(el)
	c.stats.Hits++
	value := entry.Value
	return &value, true
}

// Set inserts or overwrites key's entry, recording contributingIDs for
// targeted invalidation and evicting the LRU entry first if at capacity.
func (c *Cache) Set(key string, value types.ContextResult, contributingIDs map[string]struct{}, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled {
		return
	}

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}

	if c.cfg.MaxEntries > 0 && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLRULocked()
	}

	entry := &types.CacheEntry{
		Key: key, Value: value, ContributingIDs: contributingIDs,
		CreatedAt: now, LastAccessedAt: now,
	}
	el := c.order.PushBack(entry)
	c.entries[key] = el
}

// Reconfigure applies a new config, evicting the oldest entries until the
// cache fits a reduced MaxEntries ("config shrink").
func (c *Cache) Reconfigure(cfg types.CacheConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	if cfg.MaxEntries <= 0 {
		return
	}
	for len(c.entries) > cfg.MaxEntries {
		c.evictLRULocked()
	}
}

// InvalidateByMemoryID removes every entry whose contributing memory-id set
// contains id. If more than half the cache would be touched, the whole
// cache is cleared instead (degenerate-case rule).
func (c *Cache) InvalidateByMemoryID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hit []*list.Element
	for _, el := range c.entries {
		entry := el.Value.(*types.CacheEntry)
		if _, ok := entry.ContributingIDs[id]; ok {
			hit = append(hit, el)
		}
	}
	if len(hit) == 0 {
		return
	}

	if float64(len(hit)) > 0.5*float64(len(c.entries)) {
		n := len(c.entries)
		c.entries = make(map[string]*list.Element)
		c.order = list.New()
		c.stats.Invalidations += int64(n)
		return
	}

	for _, el := range hit {
		delete(c.entries, el.Value.(*types.CacheEntry).Key)
		c.order.Remove(el)
	}
	c.stats.Invalidations += int64(len(hit))
}

// InvalidateAll clears every entry (resetContextCache).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.stats.Invalidations += int64(n)
}

// Stats returns a snapshot of the cache's counters, including current size.
func (c *Cache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

func (c *Cache) evictLRULocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.removeElement(front)
	c.stats.Evictions++
}

func (c *Cache) removeElement(el *list.Element) {
	entry := el.Value.(*types.CacheEntry)
	delete(c.entries, entry.Key)
	c.order.Remove(el)
}
