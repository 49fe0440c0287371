// Package cache provides a small generic in-process cache.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Bounded is a mutex-guarded map that evicts its oldest entry once it holds
// maxEntries items. Entries optionally expire after ttl.
type Bounded[K comparable, V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      func() time.Time

	mu    sync.Mutex
	order *list.List // front is oldest
	items map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Option configures a Bounded cache.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock func() time.Time
}

// WithTTL expires entries ttl after they were stored. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// NewBounded returns a cache holding at most maxEntries items; values below 1 mean 1.
func NewBounded[K comparable, V any](maxEntries int, opts ...Option) *Bounded[K, V] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Bounded[K, V]{
		maxEntries: maxEntries,
		ttl:        o.ttl,
		clock:      o.clock,
		order:      list.New(),
		items:      make(map[K]*list.Element),
	}
}

// Get returns the cached value. Expired entries are dropped on access.
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if !e.expiresAt.IsZero() && !e.expiresAt.After(c.clock()) {
		c.removeLocked(el)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key. Overwriting keeps the original insertion slot.
func (c *Bounded[K, V]) Put(key K, value V) {
	c.PutTTL(key, value, c.ttl)
}

// PutTTL stores value with an explicit ttl; zero means no expiry.
func (c *Bounded[K, V]) PutTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock().Add(ttl)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}
	for c.order.Len() >= c.maxEntries {
		c.removeLocked(c.order.Front())
	}
	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes key if present.
func (c *Bounded[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Clear drops every entry.
func (c *Bounded[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Len returns the number of stored entries, expired ones included.
func (c *Bounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Bounded[K, V]) removeLocked(el *list.Element) {
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.order.Remove(el)
}
