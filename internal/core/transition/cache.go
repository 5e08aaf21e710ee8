package transition

import (
	"container/list"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/draftpilot/redline/internal/core/suggestion"
)

// resultKey identifies a completed transition by modes, post, both content
// versions, and the suggestion id set.
type resultKey struct {
	from, to      string
	postID        string
	content       uint64
	contentAtLast uint64
	ids           uint64
}

// resultCache remembers successful transitions so re-entering the same
// state shortly after does not redo the work. LRU with TTL, sized for a
// single editing session.
type resultCache struct {
	capacity int
	ttl      time.Duration
	entries  map[resultKey]*list.Element
	lru      *list.List
	now      func() time.Time
}

type resultEntry struct {
	key      resultKey
	result   Result
	storedAt time.Time
}

func newResultCache(capacity int, ttl time.Duration) *resultCache {
	return &resultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[resultKey]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

func (c *resultCache) key(req Request) resultKey {
	ids := suggestion.IDs(req.Suggestions)
	sort.Strings(ids)

	return resultKey{
		from:          string(req.From),
		to:            string(req.To),
		postID:        req.PostID,
		content:       xxhash.Sum64String(req.Content),
		contentAtLast: xxhash.Sum64String(req.ContentAtLastReview),
		ids:           xxhash.Sum64String(strings.Join(ids, "\x00")),
	}
}

func (c *resultCache) get(key resultKey) (Result, bool) {
	elem, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}

	entry := elem.Value.(*resultEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		c.lru.Remove(elem)
		return Result{}, false
	}

	c.lru.MoveToFront(elem)
	return entry.result, true
}

// set stores only successful results.
func (c *resultCache) set(key resultKey, result Result) {
	if !result.Success {
		return
	}

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*resultEntry)
		entry.result = result
		entry.storedAt = c.now()
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*resultEntry)
		delete(c.entries, entry.key)
		c.lru.Remove(oldest)
	}

	c.entries[key] = c.lru.PushFront(&resultEntry{key: key, result: result, storedAt: c.now()})
}
