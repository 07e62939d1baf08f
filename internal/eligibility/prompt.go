package eligibility

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/claimscope/internal/model"
)

// systemPrompt frames every eligibility request
const systemPrompt = "You are an expert on the Forest Rights Act, 2006 (FRA) in India, deciding patta eligibility for forest land claims."

// fraRules is the rule digest the model must decide against
const fraRules = `Key definitions (Section 2):
- Forest dwelling Scheduled Tribes (FDST): members or communities of Scheduled Tribes who primarily reside in and depend on forests or forest land for bona fide livelihood needs.
- Other traditional forest dwellers (OTFD): members or communities residing in forest land for at least three generations (75 years) before 13 December 2005.
- Forest land includes unclassified, undemarcated, protected and reserved forests, sanctuaries and national parks.

Rights and vesting (Sections 3 and 4):
- Right to hold and live in forest land for habitation or self-cultivation, not exceeding 4 hectares (Section 3(1)(a), Section 4(6)).
- Occupation must predate 13 December 2005 (Section 4(3)).
- Rights are heritable but not alienable or transferable (Section 4(4)).
- OTFD claimants must prove 75 years of residence (Section 2(o)).
- No eviction until verification is complete (Section 4(5)).

Conflicts and overlapping claims:
- Unresolved conflicts with other claims lead to rejection (Rule 12A).
- Overlaps with critical wildlife habitat require relocation if inviolate (Section 4(2)).
- Duplicate titles are ineligible.

Rejection reasons:
- Claimant is neither FDST nor OTFD (Section 2(c), 2(o)).
- Occupation after 13 December 2005 (Section 4(3)).
- Insufficient evidence (Rule 13).
- Individual claim above 4 hectares (Section 4(6)).
- Attempted alienation or transfer (Section 4(4)).
- Unresolved conflicts with other claims (Rule 12A).
- Violation of conservation duties or false claims (Sections 5, 7).`

// promptRecord is the applicant view handed to the model; identity numbers are already masked
type promptRecord struct {
	ClaimantID   string          `json:"beneficiary_id"`
	ClaimID      string          `json:"title_id"`
	Kind         model.ClaimKind `json:"right_type,omitempty"`
	LocalityID   *string         `json:"village_id"`
	AreaHectares float64         `json:"claim_area_hectares"`
	Rings        int             `json:"boundary_rings"`
	Status       string          `json:"status,omitempty"`
	Applicant    model.Applicant `json:"personal_info"`
	Admin        model.Admin     `json:"admin_info"`
}

// BuildPrompt renders the eligibility request for one masked application
func BuildPrompt(app model.Application, res model.ConflictResult) (string, error) {
	record := promptRecord{
		ClaimantID:   app.Claim.ClaimantID,
		ClaimID:      app.Claim.ClaimID,
		Kind:         app.Claim.Kind,
		LocalityID:   app.Claim.LocalityID,
		AreaHectares: app.AreaHectares,
		Rings:        len(app.Claim.Boundary),
		Status:       app.Status,
		Applicant:    app.Applicant,
		Admin:        app.Admin,
	}
	details, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal applicant details: %w", err)
	}

	var b strings.Builder
	b.WriteString("Key FRA rules for patta approval:\n\n")
	b.WriteString(fraRules)
	b.WriteString("\n\nBased strictly on these rules, check the beneficiary below against the eligibility criteria, cut-off dates, evidence requirements and maximum area.\n\n")
	fmt.Fprintf(&b, "Beneficiary details:\n%s\n\n", details)
	fmt.Fprintf(&b, "Conflicts with other claims: %s\n\n", describeConflicts(res))
	b.WriteString(`If the claim overlaps another claim, treat it as ineligible and say so in the reasons.

Output ONLY a JSON object of the form {"eligibility": true or false, "reasons": [...]}.
- "reasons" holds at most 7 short sentences, each citing the relevant FRA section or rule; it is empty when eligible.
- No text outside the JSON object and no markdown code fences.
- Ignore masked identity numbers.`)

	return b.String(), nil
}

func describeConflicts(res model.ConflictResult) string {
	if !res.ConflictDetected {
		return "none"
	}
	parts := make([]string, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (beneficiary %s)", c.ConflictingClaimID, c.OtherClaimantID))
	}
	return strings.Join(parts, ", ")
}
