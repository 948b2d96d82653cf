package http

import (
	"sync"

	"github.com/couchcryptid/traffic-dashboard/internal/aggregate"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

// SummaryCache memoises dashboard summaries by snapshot version. A version
// identifies one immutable snapshot, so a cached summary can never outlive
// the data it was computed from.
type SummaryCache struct {
	opts    aggregate.Options
	cache   *lruCache[uint64, aggregate.Summary]
	metrics *observability.Metrics
}

// NewSummaryCache creates a cache holding at most maxEntries summaries.
func NewSummaryCache(opts aggregate.Options, maxEntries int, metrics *observability.Metrics) *SummaryCache {
	return &SummaryCache{
		opts:    opts,
		cache:   newLRUCache[uint64, aggregate.Summary](maxEntries),
		metrics: metrics,
	}
}

// Get returns the summary of snap, computing it on first request.
func (c *SummaryCache) Get(snap store.Snapshot) aggregate.Summary {
	if sum, ok := c.cache.get(snap.Version); ok {
		c.metrics.SummaryCache.WithLabelValues("hit").Inc()
		return sum
	}
	c.metrics.SummaryCache.WithLabelValues("miss").Inc()
	sum := aggregate.Summarize(snap, c.opts)
	c.cache.put(snap.Version, sum)
	return sum
}

// lruCache is a small thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		last := c.tail
		delete(c.entries, last.key)
		c.unlink(last)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache[K, V]) pushFront(e *entry[K, V]) {
	e.prev, e.next = nil, c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
