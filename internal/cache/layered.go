package cache

import (
	"time"

	"go.uber.org/multierr"
)

// LayeredCache serves verdicts from memory and falls back to disk across runs
type LayeredCache struct {
	memory VerdictCache
	disk   VerdictCache
}

// NewLayeredCache creates a memory cache over a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Lookup checks memory first; a disk hit is promoted to memory
func (c *LayeredCache) Lookup(fingerprint string) (*Entry, bool) {
	if e, found := c.memory.Lookup(fingerprint); found {
		return e, true
	}

	e, found := c.disk.Lookup(fingerprint)
	if !found {
		return nil, false
	}
	_ = c.memory.Store(fingerprint, *e, 0)
	return e, true
}

// Store writes both layers. Errors from either are combined.
func (c *LayeredCache) Store(fingerprint string, entry Entry, ttl time.Duration) error {
	return multierr.Append(
		c.memory.Store(fingerprint, entry, ttl),
		c.disk.Store(fingerprint, entry, ttl),
	)
}

// Purge empties both layers
func (c *LayeredCache) Purge() error {
	return multierr.Append(c.memory.Purge(), c.disk.Purge())
}
