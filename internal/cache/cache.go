// Package cache provides an in-process key/value store with per-key
// expiration, used to avoid redundant upstream calls.
//
// Expiration is active: every Set arms a timer that deletes the entry when
// the TTL elapses, so a Get after expiry returns absent even with no further
// writes. The cache is per-instance state; horizontally scaled deployments
// each hold their own copy.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	value V
	timer clockwork.Timer
}

// Cache is a concurrency-safe TTL cache. Construct one at the composition
// root and inject it where needed; there is no package-level instance.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	clock   clockwork.Clock
}

func New[V any](clock clockwork.Clock) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		clock:   clock,
	}
}

// Get returns the value for key if present. It never triggers a refetch.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. Any pending expiration timer for the
// key is cancelled before the new one is installed, so a stale timer can
// never delete a freshly written value.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}

	e := &entry[V]{value: value}
	e.timer = c.clock.AfterFunc(ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// Only delete if the key still holds this entry; a concurrent Set
		// may have replaced it after the timer fired but before the lock.
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
	})
	c.entries[key] = e
}

// Delete removes one entry and cancels its timer. Unknown keys are a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

// Flush atomically removes all entries and cancels their timers.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		e.timer.Stop()
	}
	c.entries = make(map[string]*entry[V])
}

// Len returns the current number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
