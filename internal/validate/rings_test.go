package validate

import (
	"errors"
	"math"
	"testing"
)

func TestParseRings_Valid(t *testing.T) {
	rings, err := ParseRings([]byte(`[[[0,0],[0,1],[1,1],[1,0],[0,0]], [[5,5],[5,6],[6,6]]]`))
	if err != nil {
		t.Fatalf("ParseRings failed: %v", err)
	}
	if len(rings) != 2 {
		t.Fatalf("Expected 2 rings, got %d", len(rings))
	}
	if len(rings[0]) != 5 || len(rings[1]) != 3 {
		t.Errorf("Unexpected ring sizes: %d, %d", len(rings[0]), len(rings[1]))
	}
	if rings[1][2][0] != 6 || rings[1][2][1] != 6 {
		t.Errorf("Unexpected position: %v", rings[1][2])
	}
}

func TestParseRings_EmptyAndNull(t *testing.T) {
	for _, input := range []string{`[]`, `null`} {
		rings, err := ParseRings([]byte(input))
		if err != nil {
			t.Errorf("%s: unexpected error %v", input, err)
		}
		if len(rings) != 0 {
			t.Errorf("%s: expected no rings, got %d", input, len(rings))
		}
	}
}

func TestParseRings_NonNumericBecomesNaN(t *testing.T) {
	rings, err := ParseRings([]byte(`[[[0,0],["east","north"],[1,1]]]`))
	if err != nil {
		t.Fatalf("Expected non-numeric ordinates to be tolerated, got %v", err)
	}
	if !math.IsNaN(rings[0][1][0]) || !math.IsNaN(rings[0][1][1]) {
		t.Errorf("Expected NaN ordinates, got %v", rings[0][1])
	}
}

func TestParseRings_NumericStrings(t *testing.T) {
	rings, err := ParseRings([]byte(`[[["80.5","22.7"],[80.6,22.7],[80.6,22.8]]]`))
	if err != nil {
		t.Fatalf("ParseRings failed: %v", err)
	}
	if rings[0][0][0] != 80.5 || rings[0][0][1] != 22.7 {
		t.Errorf("Expected numeric strings to parse, got %v", rings[0][0])
	}
}

func TestParseRings_OutOfRangeNumberPoisonsOneRing(t *testing.T) {
	rings, err := ParseRings([]byte(`[[[0,0],[1e400,0],[1,1]], [[5,5],[5,6],[6,6]]]`))
	if err != nil {
		t.Fatalf("Expected out-of-range ordinate to be tolerated, got %v", err)
	}
	if len(rings) != 2 {
		t.Fatalf("Expected 2 rings, got %d", len(rings))
	}
	if !math.IsNaN(rings[0][1][0]) {
		t.Errorf("Expected NaN for out-of-range ordinate, got %v", rings[0][1][0])
	}
	if rings[1][1][1] != 6 {
		t.Errorf("Expected second ring untouched, got %v", rings[1])
	}
}

func TestParseRings_ContractViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ``},
		{"not json", `[[[0,0]`},
		{"object", `{"type":"Polygon"}`},
		{"string", `"0,0,1,1"`},
		{"ring is number", `[1, 2, 3]`},
		{"position is number", `[[0, 0, 1, 1]]`},
		{"position is object", `[[{"lon":0,"lat":0}]]`},
		{"trailing data", `[[[0,0],[1,0],[1,1]]] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRings([]byte(tt.input))
			if !errors.Is(err, ErrInvalidRings) {
				t.Errorf("Expected ErrInvalidRings, got %v", err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("FRA_00000020", "FRA_TITLE_00000014"); err != nil {
		t.Errorf("Expected valid key, got %v", err)
	}
	if err := ValidateKey(" ", "T1"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey for blank claimant, got %v", err)
	}
	if err := ValidateKey("X1", ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey for blank claim, got %v", err)
	}
}
