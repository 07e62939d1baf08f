package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache persists verdict entries as one JSON file per fingerprint
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

type diskEntry struct {
	Entry
	ExpiresAt time.Time `json:"expires_at"`
}

// Lookup reads the entry for fingerprint; expired or unreadable files miss and
// expired ones are removed
func (c *DiskCache) Lookup(fingerprint string) (*Entry, bool) {
	path := c.path(fingerprint)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var de diskEntry
	if err := json.Unmarshal(data, &de); err != nil {
		return nil, false
	}
	if c.now().After(de.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return &de.Entry, true
}

// Store writes entry next to its expiry; ttl 0 uses the cache default
func (c *DiskCache) Store(fingerprint string, entry Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.MarshalIndent(diskEntry{Entry: entry, ExpiresAt: c.now().Add(ttl)}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verdict for %s: %w", entry.Claim, err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write then rename so concurrent readers never see a partial entry
	path := c.path(fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}

	return nil
}

// Purge removes the cache directory
func (c *DiskCache) Purge() error {
	return os.RemoveAll(c.dir)
}

func (c *DiskCache) path(fingerprint string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(fingerprint, ":", "_")+".json")
}
