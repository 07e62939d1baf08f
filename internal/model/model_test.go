package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		input   string
		want    Key
		wantErr bool
	}{
		{"X1,T1", Key{ClaimantID: "X1", ClaimID: "T1"}, false},
		{" X1 , T1 ", Key{ClaimantID: "X1", ClaimID: "T1"}, false},
		{"X1,T1,extra", Key{ClaimantID: "X1", ClaimID: "T1,extra"}, false},
		{"X1", Key{}, true},
		{",T1", Key{}, true},
		{"X1,", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}

	if s := (Key{ClaimantID: "X1", ClaimID: "T1"}).String(); s != "X1,T1" {
		t.Errorf("Unexpected key string %q", s)
	}
}

func TestParseClaimKind(t *testing.T) {
	tests := map[string]ClaimKind{
		"IFR":   ClaimKindIndividual,
		" ifr ": ClaimKindIndividual,
		"cr":    ClaimKindCommunity,
		"CFR":   ClaimKindForest,
		"TEMP":  ClaimKind("TEMP"),
	}
	for input, want := range tests {
		if got := ParseClaimKind(input); got != want {
			t.Errorf("ParseClaimKind(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClaimLocality(t *testing.T) {
	if _, ok := (Claim{}).Locality(); ok {
		t.Error("Expected nil locality to be unknown")
	}
	if _, ok := (Claim{LocalityID: Locality("")}).Locality(); ok {
		t.Error("Expected empty locality to be unknown")
	}
	if loc, ok := (Claim{LocalityID: Locality("V1")}).Locality(); !ok || loc != "V1" {
		t.Errorf("Expected V1, got %q (known=%v)", loc, ok)
	}
}

func TestConflictResult_JSON(t *testing.T) {
	data, err := json.Marshal(ConflictResult{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"conflict_detected":false,"conflicts":[]}` {
		t.Errorf("Unexpected empty result JSON: %s", data)
	}

	res := NewConflictResult([]Conflict{{ConflictingClaimID: "T2", OtherClaimantID: "X2"}})
	data, err = json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"conflict_detected":true,"conflicts":[{"conflicting_claim_id":"T2","other_claimant_id":"X2"}]}`
	if string(data) != want {
		t.Errorf("Unexpected result JSON:\n got %s\nwant %s", data, want)
	}
	if diff := cmp.Diff([]string{"T2"}, res.ClaimIDs()); diff != "" {
		t.Errorf("ClaimIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestApplication_Masked(t *testing.T) {
	app := Application{Applicant: Applicant{FirstName: "Sita", Aadhaar: "1234-5678-9012"}}

	masked := app.Masked()
	if masked.Applicant.Aadhaar != MaskedAadhaar {
		t.Errorf("Expected masked number, got %q", masked.Applicant.Aadhaar)
	}
	if app.Applicant.Aadhaar != "1234-5678-9012" {
		t.Error("Expected original record to be unchanged")
	}
	if (Application{}).Masked().Applicant.Aadhaar != "" {
		t.Error("Expected absent number to stay absent")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Eligibility.AreaCapHectares != 4.0 || cfg.Eligibility.MaxAttempts != 3 {
		t.Errorf("Unexpected eligibility defaults: %+v", cfg.Eligibility)
	}
	if cfg.LLM.Provider != "" {
		t.Error("Expected LLM to be disabled by default")
	}
	if cfg.Concurrency.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Concurrency.Workers)
	}
	if len((BoundaryFiles{}).Layers()) != 0 {
		t.Error("Expected no layers when no paths are set")
	}
	layers := BoundaryFiles{IFR: "ifr.geojson", CFR: "cfr.geojson"}.Layers()
	if diff := cmp.Diff(map[ClaimKind]string{ClaimKindIndividual: "ifr.geojson", ClaimKindForest: "cfr.geojson"}, layers); diff != "" {
		t.Errorf("Layers mismatch (-want +got):\n%s", diff)
	}
}
