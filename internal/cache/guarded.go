package cache

import (
	"sync"
	"time"
)

// Guarded wraps a Cache with one mutex for callers running under OS
// threads rather than the single-threaded cooperative scheduler the bare
// Cache assumes (spec §4.7: "if deployed under OS threads, callers
// serialize access").
type Guarded struct {
	mu sync.Mutex
	c  *Cache
}

// NewGuarded wraps a fresh Cache.
func NewGuarded() *Guarded {
	return &Guarded{c: New()}
}

func (g *Guarded) Set(key string, value any, ttl time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.c.Set(key, value, ttl)
}

func (g *Guarded) Get(key string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.c.Get(key)
}

func (g *Guarded) Invalidate(pattern string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.c.Invalidate(pattern)
}

func (g *Guarded) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.c.Len()
}
