package model

// MaskedAadhaar replaces identity numbers before any record leaves the process
const MaskedAadhaar = "XXXX-XXXX-XXXX"

// Applicant holds the personal details of a claimant
type Applicant struct {
	FirstName       string  `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName        string  `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Gender          string  `json:"gender,omitempty" yaml:"gender,omitempty"`
	TribalCommunity string  `json:"tribal_community,omitempty" yaml:"tribal_community,omitempty"`
	Aadhaar         string  `json:"aadhaar,omitempty" yaml:"aadhaar,omitempty"`
	AnnualIncome    float64 `json:"income,omitempty" yaml:"income,omitempty"`
}

// Admin is the administrative hierarchy a claim sits in
type Admin struct {
	Village  string `json:"village,omitempty" yaml:"village,omitempty"`
	GPID     string `json:"gp_id,omitempty" yaml:"gp_id,omitempty"`
	GP       string `json:"gp,omitempty" yaml:"gp,omitempty"`
	BlockID  string `json:"block_id,omitempty" yaml:"block_id,omitempty"`
	Block    string `json:"block,omitempty" yaml:"block,omitempty"`
	District string `json:"district,omitempty" yaml:"district,omitempty"`
	State    string `json:"state,omitempty" yaml:"state,omitempty"`
}

// Application is a claim together with everything the eligibility step reads
type Application struct {
	Claim        Claim     `json:"claim" yaml:"claim"`
	Applicant    Applicant `json:"personal_info" yaml:"personal_info"`
	Admin        Admin     `json:"admin_info" yaml:"admin_info"`
	AreaHectares float64   `json:"claim_area_hectares" yaml:"claim_area_hectares"`
	Status       string    `json:"status,omitempty" yaml:"status,omitempty"`
}

// Key returns the identity of the underlying claim
func (a Application) Key() Key {
	return a.Claim.Key()
}

// Masked returns a copy safe to hand to an external model
func (a Application) Masked() Application {
	out := a
	if out.Applicant.Aadhaar != "" {
		out.Applicant.Aadhaar = MaskedAadhaar
	}
	return out
}
