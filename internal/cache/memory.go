package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps verdict entries in process, each with its own expiry
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache; ttl applies when Store is given 0
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: gocache.New(ttl, cleanupInterval),
	}
}

// Lookup returns a copy of the entry stored under fingerprint
func (c *MemoryCache) Lookup(fingerprint string) (*Entry, bool) {
	val, found := c.entries.Get(fingerprint)
	if !found {
		return nil, false
	}
	return val.(Entry).clone(), true
}

// Store keeps a copy of entry; ttl 0 uses the cache default
func (c *MemoryCache) Store(fingerprint string, entry Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.entries.Set(fingerprint, *entry.clone(), ttl)
	return nil
}

// Purge drops every entry
func (c *MemoryCache) Purge() error {
	c.entries.Flush()
	return nil
}
