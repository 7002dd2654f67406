package generator

import (
	"sync"

	"raceloom/internal/atomicfloat"
	"raceloom/internal/engine"
)

// cacheKey coalesces frontier entries sharing an (expression,
// previousTransitionKind) pair, per spec §4.5 — the same key can appear in
// thousands of nodes per layer, so it is expanded only once.
type cacheKey struct {
	Expression string
	PrevKind   string
}

// Cache is the global expansion cache, stable across layers and runs: a
// read-heavy map with coarse-grained locking, per spec §5.
type Cache struct {
	mu   sync.RWMutex
	m    map[cacheKey][]engine.Output
	hits *atomicfloat.Float64
	miss *atomicfloat.Float64
}

// NewCache returns an empty expansion cache.
func NewCache() *Cache {
	return &Cache{
		m:    map[cacheKey][]engine.Output{},
		hits: atomicfloat.New(0),
		miss: atomicfloat.New(0),
	}
}

// Get returns the recorded successor list for key, if present.
func (c *Cache) Get(key cacheKey) ([]engine.Output, bool) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.miss.Add(1)
	}
	return v, ok
}

// Put records key's successor list.
func (c *Cache) Put(key cacheKey, outputs []engine.Output) {
	c.mu.Lock()
	c.m[key] = outputs
	c.mu.Unlock()
}

// Hits and Misses report cumulative cache lookup counts.
func (c *Cache) Hits() int64   { return int64(c.hits.Load()) }
func (c *Cache) Misses() int64 { return int64(c.miss.Load()) }
