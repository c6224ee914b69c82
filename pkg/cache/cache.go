// Package cache provides a thread-safe LRU cache for compiled jq
// expressions.
//
// The cache is used by pkg/interp's Evaluator when the WithCaching
// option is enabled. It avoids re-parsing and re-compiling the same
// query string on every call, which is especially valuable when the
// same query is applied to many different documents (spec.md §3
// "Lifecycle").
//
// A compiled Expression is only valid for the parser max-depth it was
// compiled under — a query compiled with WithMaxDepth(50) must not be
// handed back to a caller that asked for a max depth of 4, since the
// cached AST was never depth-checked against the stricter limit. Every
// lookup and store here therefore takes the query text and the
// max-depth it was (or will be) compiled under as two separate
// arguments rather than one pre-joined string, so callers can never
// accidentally key two different compile configurations alike. Leading
// and trailing whitespace is trimmed before the key is built, so the
// lexer-equivalent ".a" and " .a " share a slot instead of each
// claiming their own.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile(".items[] | select(.price > 100)", 250, compile)
package cache

import (
	"container/list"
	"strconv"
	"strings"
	"sync"

	"github.com/kaspervalen/goq/pkg/types"
)

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key  string
	expr *types.Expression
}

// Cache is a thread-safe LRU (Least Recently Used) cache of compiled
// expressions, keyed by (program text, parser max-depth) pairs.
//
// Safe for concurrent use by multiple goroutines. GetOrCompile only
// ever calls compile while not holding the lock, so a slow parse of
// one query never blocks lookups of another; a single Mutex guards
// the list and map directly, since nothing in this module's own
// access pattern (one GetOrCompile per EvalQuery call) calls for the
// teacher's separate read-then-promote-under-write-lock dance — that
// optimization chases read-mostly contention this cache never sees.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// key normalizes query and folds maxDepth in, so a query compiled
// under one parser depth limit never collides with the same text
// compiled under another.
func key(query string, maxDepth int) string {
	return strconv.Itoa(maxDepth) + "\x00" + strings.TrimSpace(query)
}

// Get retrieves the expression compiled from query under maxDepth.
// Returns (expr, true) if found and moves the entry to front (MRU).
// Returns (nil, false) if not present.
func (c *Cache) Get(query string, maxDepth int) (*types.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key(query, maxDepth)]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces the expression compiled from query under
// maxDepth. If at capacity, the least recently used entry is evicted
// first.
func (c *Cache) Set(query string, maxDepth int, expr *types.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(query, maxDepth)
	if el, ok := c.items[k]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: k, expr: expr})
	c.items[k] = el
}

// GetOrCompile retrieves the expression compiled from query under
// maxDepth, or calls compile to produce it, caches the result, and
// returns it. compile is called at most once per (query, maxDepth)
// pair on a hit-free path (no negative caching of errors), and always
// runs outside the cache's lock.
func (c *Cache) GetOrCompile(query string, maxDepth int, compile func() (*types.Expression, error)) (*types.Expression, error) {
	if expr, ok := c.Get(query, maxDepth); ok {
		return expr, nil
	}
	expr, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(query, maxDepth, expr)
	return expr, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes the entry for (query, maxDepth), if present.
func (c *Cache) Invalidate(query string, maxDepth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(query, maxDepth)
	if el, ok := c.items[k]; ok {
		c.ll.Remove(el)
		delete(c.items, k)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
