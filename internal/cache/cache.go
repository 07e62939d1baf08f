package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
)

// Entry is one remembered eligibility verdict
type Entry struct {
	Claim    model.Key     `json:"claim"`
	Verdict  model.Verdict `json:"verdict"`
	StoredAt time.Time     `json:"stored_at"`
}

// VerdictCache keeps verdicts under a fingerprint of the inputs that decided them
type VerdictCache interface {
	Lookup(fingerprint string) (*Entry, bool)
	Store(fingerprint string, entry Entry, ttl time.Duration) error
	Purge() error
}

// Fingerprint derives a verdict cache key from the claim and the inputs that
// decided its verdict, in order
func Fingerprint(claim model.Key, inputs ...string) string {
	parts := append([]string{claim.String()}, inputs...)
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "claimscope:v2:" + hex.EncodeToString(hash[:])
}

// New builds the verdict cache described by cfg: memory over disk, or memory only
// when no directory is configured. A disabled cache yields nil.
func New(cfg model.CacheConfig) VerdictCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// clone copies an entry so cached verdicts are never shared with callers
func (e Entry) clone() *Entry {
	out := e
	out.Verdict.Reasons = slices.Clone(e.Verdict.Reasons)
	out.Verdict.ConflictingClaimIDs = slices.Clone(e.Verdict.ConflictingClaimIDs)
	out.Verdict.Signals = slices.Clone(e.Verdict.Signals)
	return &out
}
