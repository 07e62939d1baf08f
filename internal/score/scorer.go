package score

import (
	"fmt"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
)

// DefaultAreaCapHectares is the Section 4(6) ceiling for individual claims
const DefaultAreaCapHectares = 4.0

// Scorer derives deterministic rule signals for an application
type Scorer struct {
	areaCap float64
}

// NewScorer creates a new scorer. A non-positive cap falls back to the statutory 4 ha.
func NewScorer(areaCapHectares float64) *Scorer {
	if areaCapHectares <= 0 {
		areaCapHectares = DefaultAreaCapHectares
	}
	return &Scorer{areaCap: areaCapHectares}
}

// Assessment is the outcome of the rule checks
type Assessment struct {
	Eligible bool
	Reasons  []string
	Signals  []model.Signal
}

// Assess checks one application against the rule set.
// hasGeometry reports whether a polygon could be built from the claim boundary.
func (s *Scorer) Assess(app model.Application, res model.ConflictResult, hasGeometry bool) Assessment {
	var signals []model.Signal

	// 1. Overlapping claims (Rule 12A)
	if res.ConflictDetected {
		signals = append(signals, s.conflictSignal(res))
	}

	// 2. Area cap for individual rights (Section 4(6))
	if sig, ok := s.areaSignal(app); ok {
		signals = append(signals, sig)
	}

	// 3. Geometry quality
	if !hasGeometry {
		signals = append(signals, model.Signal{
			Type:        model.SignalMissingGeometry,
			Severity:    model.SeverityWarning,
			Description: "No valid boundary polygon; overlap with other claims could not be checked",
			Data: map[string]interface{}{
				"rings": len(app.Claim.Boundary),
			},
		})
	}

	// 4. Locality scoping
	if _, ok := app.Claim.Locality(); !ok {
		signals = append(signals, model.Signal{
			Type:        model.SignalLocalityUnknown,
			Severity:    model.SeverityInfo,
			Description: "Locality unknown; conflict search covered the whole pool",
		})
	}

	a := Assessment{Eligible: true, Reasons: []string{}, Signals: signals}
	for _, sig := range signals {
		if sig.Severity == model.SeverityCritical {
			a.Eligible = false
			a.Reasons = append(a.Reasons, sig.Description)
		}
	}
	return a
}

// Verdict turns an assessment into a rules-sourced verdict
func (a Assessment) Verdict(app model.Application, res model.ConflictResult, now time.Time) model.Verdict {
	return model.Verdict{
		ClaimantID:          app.Claim.ClaimantID,
		ClaimID:             app.Claim.ClaimID,
		Eligible:            a.Eligible,
		Reasons:             a.Reasons,
		ConflictingClaimIDs: res.ClaimIDs(),
		Signals:             a.Signals,
		Source:              model.VerdictSourceRules,
		EvaluatedAt:         now,
	}
}

func (s *Scorer) conflictSignal(res model.ConflictResult) model.Signal {
	ids := res.ClaimIDs()
	description := fmt.Sprintf("Boundary overlaps %d other claim(s): unresolved conflicts lead to rejection (Rule 12A)", len(ids))
	if len(res.Conflicts) == 1 {
		c := res.Conflicts[0]
		description = fmt.Sprintf("Boundary overlaps claim %s of beneficiary %s: unresolved conflicts lead to rejection (Rule 12A)",
			c.ConflictingClaimID, c.OtherClaimantID)
	}

	return model.Signal{
		Type:        model.SignalOverlapConflict,
		Severity:    model.SeverityCritical,
		Description: description,
		Data: map[string]interface{}{
			"conflicting_claim_ids": ids,
			"count":                 len(ids),
		},
	}
}

func (s *Scorer) areaSignal(app model.Application) (model.Signal, bool) {
	if app.Claim.Kind != model.ClaimKindIndividual || app.AreaHectares <= s.areaCap {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:     model.SignalAreaExceedsCap,
		Severity: model.SeverityCritical,
		Description: fmt.Sprintf("Claimed area %.2f ha exceeds the %.0f ha limit for individual rights (Section 4(6))",
			app.AreaHectares, s.areaCap),
		Data: map[string]interface{}{
			"area_hectares": app.AreaHectares,
			"cap_hectares":  s.areaCap,
		},
	}, true
}
