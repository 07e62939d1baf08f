package model

import (
	"fmt"
	"strings"
)

// Position is a single vertex: [longitude, latitude, ...]. Extra ordinates are ignored.
type Position []float64

// Ring is an ordered sequence of positions describing one polygon boundary
type Ring []Position

// ClaimKind categorizes the right being claimed
type ClaimKind string

const (
	ClaimKindIndividual ClaimKind = "IFR" // Individual forest right
	ClaimKindCommunity  ClaimKind = "CR"  // Community right
	ClaimKindForest     ClaimKind = "CFR" // Community forest resource / critical habitat right
)

// ParseClaimKind normalizes a right type. Unknown values are kept as given.
func ParseClaimKind(s string) ClaimKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IFR":
		return ClaimKindIndividual
	case "CR":
		return ClaimKindCommunity
	case "CFR":
		return ClaimKindForest
	default:
		return ClaimKind(strings.TrimSpace(s))
	}
}

// Key identifies a claim within the pool
type Key struct {
	ClaimantID string `json:"claimant_id" yaml:"claimant_id"`
	ClaimID    string `json:"claim_id" yaml:"claim_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s,%s", k.ClaimantID, k.ClaimID)
}

// ParseKey parses the "claimant_id,claim_id" form used on the command line
func ParseKey(s string) (Key, error) {
	claimant, claim, ok := strings.Cut(s, ",")
	if !ok {
		return Key{}, fmt.Errorf("key must be 'claimant_id,claim_id': %q", s)
	}
	k := Key{ClaimantID: strings.TrimSpace(claimant), ClaimID: strings.TrimSpace(claim)}
	if k.ClaimantID == "" || k.ClaimID == "" {
		return Key{}, fmt.Errorf("key must be 'claimant_id,claim_id': %q", s)
	}
	return k, nil
}

// Claim is the read-only snapshot of a land claim used by conflict detection
type Claim struct {
	ClaimantID string    `json:"claimant_id" yaml:"claimant_id"`
	ClaimID    string    `json:"claim_id" yaml:"claim_id"`
	LocalityID *string   `json:"locality_id" yaml:"locality_id"` // nil disables locality scoping
	Boundary   []Ring    `json:"boundary" yaml:"boundary"`
	Kind       ClaimKind `json:"claim_kind,omitempty" yaml:"claim_kind,omitempty"`
}

// Key returns the claim's identity
func (c Claim) Key() Key {
	return Key{ClaimantID: c.ClaimantID, ClaimID: c.ClaimID}
}

// Locality returns the locality id and whether one is known
func (c Claim) Locality() (string, bool) {
	if c.LocalityID == nil || *c.LocalityID == "" {
		return "", false
	}
	return *c.LocalityID, true
}

// Locality builds a LocalityID value
func Locality(id string) *string {
	return &id
}
