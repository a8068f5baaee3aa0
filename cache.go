package orrery

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the default number of instants kept by a CachedEngine.
const DefaultCacheSize = 256

// CachedEngine memoizes the snapshots of all planets per instant.
// Animation loops tend to query the same instants repeatedly, e.g. when paused.
type CachedEngine struct {
	*Engine
	cache *lru.Cache // instant -> map[Planet]Snapshot
}

// instant identifies a time regardless of its location. UnixNano overflows
// outside of years 1678 to 2262.
type instant struct {
	sec  int64
	nsec int
}

// NewCachedEngine wraps the provided engine with an LRU cache of the provided size.
func NewCachedEngine(e *Engine, size int) (*CachedEngine, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedEngine{Engine: e, cache: cache}, nil
}

// AllPositions returns the snapshot of every planet, computing it only once
// per instant. The returned map belongs to the caller.
func (c *CachedEngine) AllPositions(dt time.Time) map[Planet]Snapshot {
	key := instant{dt.Unix(), dt.Nanosecond()}
	if cached, ok := c.cache.Get(key); ok {
		return copySnapshots(cached.(map[Planet]Snapshot))
	}
	positions := c.Engine.AllPositions(dt)
	c.cache.Add(key, copySnapshots(positions))
	return positions
}

// Len returns the number of cached instants.
func (c *CachedEngine) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *CachedEngine) Purge() {
	c.cache.Purge()
}

func copySnapshots(src map[Planet]Snapshot) map[Planet]Snapshot {
	dst := make(map[Planet]Snapshot, len(src))
	for p, s := range src {
		dst[p] = s
	}
	return dst
}
