package model

import (
	"encoding/json"
	"time"
)

// Conflict names one other claim whose boundary intersects the reviewed claim
type Conflict struct {
	ConflictingClaimID string `json:"conflicting_claim_id" yaml:"conflicting_claim_id"`
	OtherClaimantID    string `json:"other_claimant_id" yaml:"other_claimant_id"`
}

// ConflictResult is the outcome of a single detection call
type ConflictResult struct {
	ConflictDetected bool       `json:"conflict_detected" yaml:"conflict_detected"`
	Conflicts        []Conflict `json:"conflicts" yaml:"conflicts"`
}

// NewConflictResult builds a result whose flag agrees with the conflict list
func NewConflictResult(conflicts []Conflict) ConflictResult {
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return ConflictResult{
		ConflictDetected: len(conflicts) > 0,
		Conflicts:        conflicts,
	}
}

// ClaimIDs returns the conflicting claim ids in result order
func (r ConflictResult) ClaimIDs() []string {
	ids := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		ids = append(ids, c.ConflictingClaimID)
	}
	return ids
}

// MarshalJSON keeps "conflicts" an array even on a zero-value result
func (r ConflictResult) MarshalJSON() ([]byte, error) {
	type plain ConflictResult
	p := plain(r)
	if p.Conflicts == nil {
		p.Conflicts = []Conflict{}
	}
	return json.Marshal(p)
}

// Signal is a deterministic rule finding about an application
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a rule finding
type SignalType string

const (
	SignalOverlapConflict SignalType = "overlap_conflict" // Boundary intersects another claim (Rule 12A)
	SignalAreaExceedsCap  SignalType = "area_exceeds_cap" // Individual claim above 4 ha (Section 4(6))
	SignalMissingGeometry SignalType = "missing_geometry" // No valid polygon could be built
	SignalLocalityUnknown SignalType = "locality_unknown" // Conflict search was not locality scoped
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// VerdictSourceRules marks a verdict produced without a text model
const VerdictSourceRules = "rules"

// Verdict is the eligibility decision for one application
type Verdict struct {
	ClaimantID          string    `json:"claimant_id"`
	ClaimID             string    `json:"claim_id"`
	Eligible            bool      `json:"eligibility"`
	Reasons             []string  `json:"reasons"`
	ConflictingClaimIDs []string  `json:"conflicting_claim_ids"`
	Signals             []Signal  `json:"signals,omitempty"`
	Source              string    `json:"source"`
	Model               string    `json:"model,omitempty"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

// Review is the verdict written back onto the pool record
type Review struct {
	Eligible   bool      `json:"review" yaml:"review"`
	Remarks    []string  `json:"remarks" yaml:"remarks"`
	ReviewedAt time.Time `json:"reviewed_at" yaml:"reviewed_at"`
}
