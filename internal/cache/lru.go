// internal/cache/lru.go
//
// Small LRU cache holding live auth flows keyed by flow ID.  No external
// deps; good for a few thousand entries.  Safe for concurrent use.
//
// The optional eviction hook runs after the cache lock is released, so it
// may call back into the cache or tear down the evicted value freely.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a least-recently-used cache.  Keys must be comparable.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	cap     int
	ll      *list.List
	dict    map[K]*list.Element
	onEvict func(K, V)
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
// onEvict may be nil; it fires for capacity evictions and Remove, never for
// in-place updates.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:     capacity,
		ll:      list.New(),
		dict:    make(map[K]*list.Element, capacity),
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Add inserts or updates a value.  It reports whether an older entry was
// evicted to make room.
func (c *LRU[K, V]) Add(key K, val V) (evicted bool) {
	c.mu.Lock()
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		c.mu.Unlock()
		return false
	}
	ele := c.ll.PushFront(pair[K, V]{key, val})
	c.dict[key] = ele

	var gone *pair[K, V]
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		p := last.Value.(pair[K, V])
		delete(c.dict, p.key)
		gone = &p
	}
	c.mu.Unlock()

	if gone != nil && c.onEvict != nil {
		c.onEvict(gone.key, gone.val)
	}
	return gone != nil
}

// Remove deletes key and fires the eviction hook when it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	ele, hit := c.dict[key]
	if hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
	c.mu.Unlock()

	if hit && c.onEvict != nil {
		p := ele.Value.(pair[K, V])
		c.onEvict(p.key, p.val)
	}
	return hit
}

// Purge removes every entry, firing the hook for each, oldest first.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	var all []pair[K, V]
	for e := c.ll.Back(); e != nil; e = e.Prev() {
		all = append(all, e.Value.(pair[K, V]))
	}
	c.ll.Init()
	c.dict = make(map[K]*list.Element, c.cap)
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, p := range all {
			c.onEvict(p.key, p.val)
		}
	}
}

// Len reports current size.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
