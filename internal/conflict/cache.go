package conflict

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/claimscope/internal/geometry"
	"github.com/ppiankov/claimscope/internal/model"
)

// ShapeCache memoizes candidate shapes by claim identity.
// Entries remember the pool version they were built from and are ignored once the pool moves on.
type ShapeCache struct {
	cache *gocache.Cache
}

type cachedShape struct {
	version uint64
	shape   *geometry.Shape // nil is a valid "no geometry" entry
}

// NewShapeCache creates a shape cache whose entries expire after ttl
func NewShapeCache(ttl time.Duration) *ShapeCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ShapeCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the shape built for key at the given pool version
func (c *ShapeCache) Get(key model.Key, version uint64) (*geometry.Shape, bool) {
	if c == nil {
		return nil, false
	}
	val, found := c.cache.Get(key.String())
	if !found {
		return nil, false
	}
	entry := val.(cachedShape)
	if entry.version != version {
		return nil, false
	}
	return entry.shape, true
}

// Set stores the shape built for key at the given pool version
func (c *ShapeCache) Set(key model.Key, version uint64, shape *geometry.Shape) {
	if c == nil {
		return
	}
	c.cache.SetDefault(key.String(), cachedShape{version: version, shape: shape})
}

// Len returns the number of cached entries, stale ones included
func (c *ShapeCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}

// Flush drops every entry
func (c *ShapeCache) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}
