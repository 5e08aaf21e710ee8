package recalc

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/draftpilot/redline/internal/core/offsets"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/core/textdiff"
)

// Cache defaults, tuned for recomputation within one editing session.
const (
	DefaultCacheCapacity = 50
	DefaultCacheTTL      = 3 * time.Minute
)

// cacheKey is a composite 64-bit hash of content, sorted suggestion ids,
// and the serialized diff list. A collision would silently reuse a wrong
// cached result; acceptable for a same-session in-memory cache.
type cacheKey struct {
	content     uint64
	suggestions uint64
	diffs       uint64
}

// CacheMetrics exposes cache counters for observability and tests.
type CacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// HitRate returns the percentage of gets served from cache.
func (m CacheMetrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total) * 100
}

// Cache memoizes delta computations keyed by the (content, suggestion set,
// diff list) triple. Eviction is strict LRU by access order; entries older
// than the TTL are evicted eagerly on Get. The cache is owned by a single
// recalculation service per document session and needs no locking beyond
// that ownership.
type Cache struct {
	capacity int
	ttl      time.Duration
	entries  map[cacheKey]*list.Element
	lru      *list.List

	hits      int64
	misses    int64
	evictions int64

	now func() time.Time
}

type cacheEntry struct {
	key      cacheKey
	deltas   []offsets.Delta
	storedAt time.Time
}

// NewCache creates a delta cache. Zero or negative capacity/ttl select the
// defaults.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get returns the cached deltas for the given inputs, or (nil, false) on a
// miss. Expired entries are treated as misses and removed.
func (c *Cache) Get(content string, suggestions []suggestion.Suggestion, diffs []textdiff.Diff) ([]offsets.Delta, bool) {
	key := deriveKey(content, suggestions, diffs)

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.remove(elem)
		c.evictions++
		c.misses++
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.hits++
	return cloneDeltas(entry.deltas), true
}

// Set stores computed deltas, evicting the least recently used entry once
// over capacity.
func (c *Cache) Set(content string, suggestions []suggestion.Suggestion, diffs []textdiff.Diff, deltas []offsets.Delta) {
	key := deriveKey(content, suggestions, diffs)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.deltas = cloneDeltas(deltas)
		entry.storedAt = c.now()
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
		c.evictions++
	}

	entry := &cacheEntry{key: key, deltas: cloneDeltas(deltas), storedAt: c.now()}
	c.entries[key] = c.lru.PushFront(entry)
}

// Clear removes all entries. Counters are preserved.
func (c *Cache) Clear() {
	c.entries = make(map[cacheKey]*list.Element)
	c.lru.Init()
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
	}
}

func (c *Cache) remove(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

func deriveKey(content string, suggestions []suggestion.Suggestion, diffs []textdiff.Diff) cacheKey {
	ids := suggestion.IDs(suggestions)
	sort.Strings(ids)

	var diffRepr strings.Builder
	for _, d := range diffs {
		fmt.Fprintf(&diffRepr, "%s:%d:%d:%s:%s;", d.Op, d.StartOffset, d.EndOffset, d.OldText, d.NewText)
	}

	return cacheKey{
		content:     xxhash.Sum64String(content),
		suggestions: xxhash.Sum64String(strings.Join(ids, "\x00")),
		diffs:       xxhash.Sum64String(diffRepr.String()),
	}
}

func cloneDeltas(deltas []offsets.Delta) []offsets.Delta {
	out := make([]offsets.Delta, len(deltas))
	copy(out, deltas)
	return out
}
