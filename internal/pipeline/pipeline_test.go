package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/claimscope/internal/ingest"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/store"
)

const poolDoc = `applications:
  - claim:
      claimant_id: X1
      claim_id: T1
      locality_id: V1
      claim_kind: IFR
      boundary:
        - [[0, 0], [2, 0], [2, 2], [0, 2], [0, 0]]
    claim_area_hectares: 1.5
  - claim:
      claimant_id: X2
      claim_id: T2
      locality_id: V1
      claim_kind: IFR
      boundary:
        - [[1, 1], [3, 1], [3, 3], [1, 3], [1, 1]]
    claim_area_hectares: 2
  - claim:
      claimant_id: X3
      claim_id: T3
      locality_id: V1
      claim_kind: IFR
      boundary:
        - [[10, 10], [11, 10], [11, 11], [10, 11], [10, 10]]
    claim_area_hectares: 1
`

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Concurrency.Workers = 2
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte(poolDoc), 0644); err != nil {
		t.Fatalf("Failed to write pool file: %v", err)
	}
	cfg.Data.PoolFile = path
	return cfg
}

func TestNew_LoadsPool(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.Pool().Len() != 3 {
		t.Errorf("Expected 3 pooled claims, got %d", p.Pool().Len())
	}
	if p.Provider() != nil {
		t.Error("Expected no provider by default")
	}
}

func TestNew_NoSource(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false

	_, err := New(context.Background(), cfg, nil)
	if !errors.Is(err, ingest.ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}

func TestNewWithPool_BadProviderFallsBack(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.LLM.Provider = "unknown"

	p := NewWithPool(store.NewPool(), cfg, nil)
	if p.Provider() != nil {
		t.Error("Expected misconfigured provider to be dropped")
	}
}

func TestPipeline_Detect(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A new boundary for X3,T3 that now touches T1 and T2
	res := p.Detect("X3", "T3", []model.Ring{{{1.5, 1.5}, {4, 1.5}, {4, 4}, {1.5, 4}}})
	want := model.NewConflictResult([]model.Conflict{
		{ConflictingClaimID: "T1", OtherClaimantID: "X1"},
		{ConflictingClaimID: "T2", OtherClaimantID: "X2"},
	})
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Detect mismatch (-want +got):\n%s", diff)
	}

	stored, err := p.DetectClaim(model.Key{ClaimantID: "X3", ClaimID: "T3"})
	if err != nil {
		t.Fatalf("DetectClaim failed: %v", err)
	}
	if stored.ConflictDetected {
		t.Errorf("Expected stored T3 boundary to be clean, got %+v", stored)
	}
}

func TestPipeline_Sweep(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report := p.Sweep(context.Background(), nil)

	if report.RunID == "" {
		t.Error("Expected a run id")
	}
	want := SweepTotals{Claims: 3, Conflicted: 2, Clean: 1, Pairs: 1}
	if diff := cmp.Diff(want, report.Totals); diff != "" {
		t.Errorf("Totals mismatch (-want +got):\n%s", diff)
	}
	if len(report.Claims) != 3 || report.Claims[0].Key != (model.Key{ClaimantID: "X1", ClaimID: "T1"}) {
		t.Errorf("Expected entries in pool order, got %+v", report.Claims)
	}

	var out bytes.Buffer
	RenderSweepSummary(&out, report)
	if !strings.Contains(out.String(), "X1,T1 overlaps T2 (X2)") {
		t.Errorf("Expected conflict line in summary:\n%s", out.String())
	}
}

func TestPipeline_Reload(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	x1 := model.Key{ClaimantID: "X1", ClaimID: "T1"}
	p.Pool().SetReview(x1, model.Review{Eligible: true})
	p.Pool().SetReview(model.Key{ClaimantID: "X2", ClaimID: "T2"}, model.Review{Eligible: false})

	// X2 leaves the register and X3 is redrawn over X1
	updated := `applications:
  - claim:
      claimant_id: X1
      claim_id: T1
      locality_id: V1
      boundary:
        - [[0, 0], [2, 0], [2, 2], [0, 2], [0, 0]]
  - claim:
      claimant_id: X3
      claim_id: T3
      locality_id: V1
      boundary:
        - [[1.5, 1.5], [4, 1.5], [4, 4], [1.5, 4], [1.5, 1.5]]
`
	if err := os.WriteFile(cfg.Data.PoolFile, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	if err := p.Reload(context.Background(), cfg.Data); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if diff := cmp.Diff([]model.Key{x1, {ClaimantID: "X3", ClaimID: "T3"}}, p.Pool().Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := p.Pool().Review(model.Key{ClaimantID: "X2", ClaimID: "T2"}); ok {
		t.Error("Expected review of removed claim to be gone")
	}
	if _, ok := p.Pool().Review(x1); !ok {
		t.Error("Expected review of surviving claim to be kept")
	}

	res, err := p.DetectClaim(x1)
	if err != nil {
		t.Fatalf("DetectClaim failed: %v", err)
	}
	want := []model.Conflict{{ConflictingClaimID: "T3", OtherClaimantID: "X3"}}
	if diff := cmp.Diff(want, res.Conflicts); diff != "" {
		t.Errorf("Conflicts after reload mismatch (-want +got):\n%s", diff)
	}

	if err := p.Reload(context.Background(), model.DataConfig{}); !errors.Is(err, ingest.ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
	if p.Pool().Len() != 2 {
		t.Errorf("Expected failed reload to leave the pool alone, got %d claims", p.Pool().Len())
	}
}

func TestPipeline_SweepSelectedKeys(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report := p.Sweep(context.Background(), []model.Key{
		{ClaimantID: "X3", ClaimID: "T3"},
		{ClaimantID: "X9", ClaimID: "T9"},
	})

	if report.Totals.Claims != 2 || report.Totals.Failed != 1 || report.Totals.Clean != 1 {
		t.Errorf("Unexpected totals: %+v", report.Totals)
	}
	if report.Claims[1].Error == "" {
		t.Error("Expected unknown claim to carry an error")
	}
}

func TestPipeline_EvaluateAll(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report := p.EvaluateAll(context.Background(), nil)

	if report.Source != model.VerdictSourceRules {
		t.Errorf("Expected rules source, got %s", report.Source)
	}
	want := EvaluationTotals{Claims: 3, Eligible: 1, Ineligible: 2}
	if diff := cmp.Diff(want, report.Totals); diff != "" {
		t.Errorf("Totals mismatch (-want +got):\n%s", diff)
	}

	review, ok := p.Pool().Review(model.Key{ClaimantID: "X2", ClaimID: "T2"})
	if !ok || review.Eligible {
		t.Errorf("Expected ineligible review on X2,T2, got %+v (found=%v)", review, ok)
	}

	var out bytes.Buffer
	RenderEvaluationSummary(&out, report)
	if !strings.Contains(out.String(), "✓ X3,T3 eligible") {
		t.Errorf("Expected eligible line in summary:\n%s", out.String())
	}
}

func TestPipeline_Evaluate(t *testing.T) {
	p, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v, err := p.Evaluate(context.Background(), model.Key{ClaimantID: "X1", ClaimID: "T1"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	var out bytes.Buffer
	RenderVerdict(&out, v)
	if !strings.Contains(out.String(), "X1,T1: ✗ ineligible (source: rules)") {
		t.Errorf("Unexpected verdict rendering:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Conflicting claims: [T2]") {
		t.Errorf("Expected conflicting claims line:\n%s", out.String())
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sweep.json")
	report := &SweepReport{
		RunID:  "run-1",
		Claims: []SweepEntry{{Key: model.Key{ClaimantID: "X1", ClaimID: "T1"}}},
	}

	if err := WriteJSON(report, path); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	claims := decoded["claims"].([]any)
	entry := claims[0].(map[string]any)
	if entry["claimant_id"] != "X1" || entry["claim_id"] != "T1" {
		t.Errorf("Expected key fields inline, got %v", entry)
	}
	result := entry["result"].(map[string]any)
	if _, ok := result["conflicts"].([]any); !ok {
		t.Errorf("Expected conflicts to be an array, got %v", result["conflicts"])
	}
}
