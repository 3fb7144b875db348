// Package cache provides a thread-safe LRU cache with single-flight
// computation of missing entries.
//
// The catalog uses it to memoize overload resolution and the engine uses it
// to keep compiled expressions, so that the same expression evaluated at
// many cells is validated and compiled once even when the first requests
// arrive together.
//
// # Example
//
//	c := cache.New[string, *Expression](1024)
//	x, err := c.GetOrCompute(key, compile)
package cache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

type item[K ~string, V any] struct {
	key   K
	value V
}

// Cache maps string keys to values and drops the least recently used
// entry once full. Safe for concurrent use.
type Cache[K ~string, V any] struct {
	mu    sync.RWMutex
	limit int
	order *list.List // front is the most recently used
	index map[K]*list.Element

	flight singleflight.Group
}

// New returns an empty cache holding at most capacity entries.
func New[K ~string, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		limit: capacity,
		order: list.New(),
		index: make(map[K]*list.Element, capacity),
	}
}

// Get returns the value stored under key and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	el, ok := c.index[key]
	front := ok && c.order.Front() == el
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if front {
		return el.Value.(*item[K, V]).value, true
	}

	// The entry may have been evicted between the two locks.
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok = c.index[key]; !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*item[K, V]).value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*item[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*item[K, V]).key)
	}
	c.index[key] = c.order.PushFront(&item[K, V]{key: key, value: value})
}

// GetOrCompute returns the value under key, calling compute on a miss and
// storing its result. Concurrent misses on one key share a single call of
// compute. Errors are returned to every waiting caller and never stored.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	r, err, _ := c.flight.Do(string(key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	v, _ := r.(V) // r is nil when compute returned a nil V
	return v, err
}

// Len returns the number of stored entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() int { return c.limit }

// Invalidate drops the entry under key, if any.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[K]*list.Element, c.limit)
}
