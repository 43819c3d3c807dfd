// internal/cache/lru.go
//
// Tiny generic LRU used by the auth registry to bound the number of live
// browser sessions held in memory.  No external deps; good for a few
// thousand entries.
//
// Notes
// -----
// • Not safe for concurrent use.  Callers hold their own lock.
// • OnEvict fires for capacity evictions and explicit Remove calls, never
//   for in-place updates.
package cache

import "container/list"

// LRU is a least-recently-used cache keyed by any comparable type.
type LRU[K comparable, V any] struct {
	cap  int
	ll   *list.List
	dict map[K]*list.Element

	// OnEvict, when set, receives every entry that leaves the cache.
	OnEvict func(key K, val V)
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Peek retrieves a value without touching recency.
func (c *LRU[K, V]) Peek(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Add inserts or updates a value.
func (c *LRU[K, V]) Add(key K, val V) {
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(pair[K, V]{key, val})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		c.removeElement(c.ll.Back())
	}
}

// Remove deletes key if present and reports whether it was.
func (c *LRU[K, V]) Remove(key K) bool {
	ele, hit := c.dict[key]
	if !hit {
		return false
	}
	c.removeElement(ele)
	return true
}

// Range walks entries from least to most recently used.  Returning false
// stops the walk.  fn must not mutate the cache.
func (c *LRU[K, V]) Range(fn func(key K, val V) bool) {
	for ele := c.ll.Back(); ele != nil; ele = ele.Prev() {
		p := ele.Value.(pair[K, V])
		if !fn(p.key, p.val) {
			return
		}
	}
}

// Len reports current size.
func (c *LRU[K, V]) Len() int { return c.ll.Len() }

func (c *LRU[K, V]) removeElement(ele *list.Element) {
	p := ele.Value.(pair[K, V])
	c.ll.Remove(ele)
	delete(c.dict, p.key)
	if c.OnEvict != nil {
		c.OnEvict(p.key, p.val)
	}
}
