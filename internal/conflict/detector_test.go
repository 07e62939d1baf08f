package conflict

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/claimscope/internal/geometry"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	unitSquare = model.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	offsetSq   = model.Ring{{0.5, 0.5}, {0.5, 1.5}, {1.5, 1.5}, {1.5, 0.5}, {0.5, 0.5}}
	farSquare  = model.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}
)

func newClaim(claimant, id, locality string, rings ...model.Ring) model.Claim {
	c := model.Claim{ClaimantID: claimant, ClaimID: id, Boundary: rings}
	if locality != "" {
		c.LocalityID = model.Locality(locality)
	}
	return c
}

func newDetector(claims ...model.Claim) (*Detector, *store.Pool) {
	pool := newPool(claims...)
	return NewDetector(pool, geometry.NewBuilder(nil), NewShapeCache(time.Minute), nil), pool
}

func newPool(claims ...model.Claim) *store.Pool {
	pool := store.NewPool()
	for _, c := range claims {
		pool.Add(c)
	}
	return pool
}

func TestDetect_OverlapSameLocality(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
	)

	got := d.Detect("X1", "T1", []model.Ring{unitSquare})
	want := model.ConflictResult{
		ConflictDetected: true,
		Conflicts:        []model.Conflict{{ConflictingClaimID: "T2", OtherClaimantID: "X2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detect() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_DifferentLocality(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L2", offsetSq),
	)

	got := d.Detect("X1", "T1", []model.Ring{unitSquare})
	if got.ConflictDetected {
		t.Error("Expected no conflict across localities")
	}
	if got.Conflicts == nil || len(got.Conflicts) != 0 {
		t.Errorf("Expected empty, non-nil conflict list, got %#v", got.Conflicts)
	}
}

func TestDetect_EmptyBoundaryClaim(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X3", "T3", "L1"),
	)

	fromOther := d.Detect("X1", "T1", []model.Ring{unitSquare})
	for _, c := range fromOther.Conflicts {
		if c.ConflictingClaimID == "T3" {
			t.Error("Claim without geometry must never be reported")
		}
	}

	fromEmpty := d.Detect("X3", "T3", nil)
	if fromEmpty.ConflictDetected {
		t.Error("Expected claim without geometry to detect nothing")
	}
}

func TestDetect_DegenerateRingCountsAsNoGeometry(t *testing.T) {
	twoPoints := model.Ring{{0, 0}, {1, 1}}
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X4", "T4", "L1", twoPoints),
	)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); got.ConflictDetected {
		t.Errorf("Expected degenerate candidate to be ignored, got %+v", got)
	}
	if got := d.Detect("X4", "T4", []model.Ring{twoPoints}); got.ConflictDetected {
		t.Errorf("Expected degenerate target to detect nothing, got %+v", got)
	}
}

func TestDetect_SelfExclusion(t *testing.T) {
	claims := []model.Claim{
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
		newClaim("X3", "T3", "L1", unitSquare, farSquare),
	}
	d, _ := newDetector(claims...)

	for _, c := range claims {
		res := d.Detect(c.ClaimantID, c.ClaimID, c.Boundary)
		for _, conflict := range res.Conflicts {
			if conflict.ConflictingClaimID == c.ClaimID && conflict.OtherClaimantID == c.ClaimantID {
				t.Errorf("%s reported as conflicting with itself", c.Key())
			}
		}
	}
}

func TestDetect_ConcurrentCallersShareBuilder(t *testing.T) {
	claims := []model.Claim{
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
		newClaim("X3", "T3", "L1", farSquare, offsetSq),
		newClaim("X4", "T4", "L1", model.Ring{{0, 0}, {1, 1}}),
	}
	for i := 0; i < 20; i++ {
		claims = append(claims, newClaim(fmt.Sprintf("Y%d", i), fmt.Sprintf("U%d", i), "L1", farSquare))
	}
	d, pool := newDetector(claims...)

	want := make(map[model.Key]model.ConflictResult, len(claims))
	for _, c := range claims {
		want[c.Key()] = d.Detect(c.ClaimantID, c.ClaimID, c.Boundary)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8*len(claims))
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if w%2 == 0 {
				// new version forces every candidate shape to be rebuilt
				pool.Add(newClaim(fmt.Sprintf("Z%d", w), "V", "L2", unitSquare))
			}
			for _, c := range claims {
				got := d.Detect(c.ClaimantID, c.ClaimID, c.Boundary)
				if diff := cmp.Diff(want[c.Key()], got); diff != "" {
					errs <- fmt.Errorf("%s mismatch (-want +got):\n%s", c.Key(), diff)
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestDetect_SameClaimIDDifferentClaimantIsNotSelf(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T1", "L1", unitSquare),
	)

	got := d.Detect("X1", "T1", []model.Ring{unitSquare})
	want := []model.Conflict{{ConflictingClaimID: "T1", OtherClaimantID: "X2"}}
	if diff := cmp.Diff(want, got.Conflicts); diff != "" {
		t.Errorf("Conflicts mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_Symmetry(t *testing.T) {
	a := newClaim("X1", "T1", "L1", unitSquare)
	b := newClaim("X2", "T2", "L1", offsetSq)
	d, _ := newDetector(a, b)

	fromA := d.Detect(a.ClaimantID, a.ClaimID, a.Boundary)
	fromB := d.Detect(b.ClaimantID, b.ClaimID, b.Boundary)

	if !fromA.ConflictDetected || fromA.Conflicts[0].ConflictingClaimID != "T2" {
		t.Errorf("Expected A to flag B, got %+v", fromA)
	}
	if !fromB.ConflictDetected || fromB.Conflicts[0].ConflictingClaimID != "T1" {
		t.Errorf("Expected B to flag A, got %+v", fromB)
	}
}

func TestDetect_BoundaryTouchIsConflict(t *testing.T) {
	touching := model.Ring{{1, 0}, {1, 1}, {2, 1}, {2, 0}, {1, 0}}
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", touching),
	)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); !got.ConflictDetected {
		t.Error("Expected shared edge to count as a conflict")
	}
}

func TestDetect_UnknownClaimSpansWholePool(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L2", offsetSq),
	)

	got := d.Detect("NEW", "T9", []model.Ring{unitSquare})
	want := []model.Conflict{
		{ConflictingClaimID: "T1", OtherClaimantID: "X1"},
		{ConflictingClaimID: "T2", OtherClaimantID: "X2"},
	}
	if diff := cmp.Diff(want, got.Conflicts); diff != "" {
		t.Errorf("Conflicts mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_NilLocalitySpansWholePool(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "", unitSquare),
		newClaim("X2", "T2", "L2", offsetSq),
	)

	got := d.Detect("X1", "T1", []model.Ring{unitSquare})
	if len(got.Conflicts) != 1 {
		t.Errorf("Expected unscoped search to find T2, got %+v", got)
	}
}

func TestDetect_ScopedSkipsCandidatesWithoutLocality(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "", offsetSq),
	)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); got.ConflictDetected {
		t.Errorf("Expected candidate without locality to be out of scope, got %+v", got)
	}
}

func TestDetect_PoolOrderIsKept(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X9", "T9", "L1", offsetSq),
		newClaim("X5", "T5", "L1", farSquare),
		newClaim("X2", "T2", "L1", unitSquare),
	)

	got := d.Detect("X1", "T1", []model.Ring{unitSquare})
	want := []string{"T9", "T2"}
	if diff := cmp.Diff(want, got.ClaimIDs()); diff != "" {
		t.Errorf("Conflict order mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
		newClaim("X3", "T3", "L1", farSquare),
	)

	first := d.Detect("X1", "T1", []model.Ring{unitSquare})
	second := d.Detect("X1", "T1", []model.Ring{unitSquare})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Repeated Detect() differs (-first +second):\n%s", diff)
	}
}

func TestDetect_UsesCallerRingsNotStoredBoundary(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", farSquare),
		newClaim("X2", "T2", "L1", offsetSq),
	)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); !got.ConflictDetected {
		t.Error("Expected detection to use the supplied rings")
	}
}

func TestDetect_CacheInvalidatedOnPoolChange(t *testing.T) {
	d, pool := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", farSquare),
	)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); got.ConflictDetected {
		t.Fatal("Expected no conflict before the move")
	}

	pool.Add(newClaim("X2", "T2", "L1", offsetSq))

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); !got.ConflictDetected {
		t.Error("Expected moved boundary to be picked up after pool mutation")
	}
}

func TestDetect_WithoutShapeCache(t *testing.T) {
	pool := newPool(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
	)
	d := NewDetector(pool, nil, nil, nil)

	if got := d.Detect("X1", "T1", []model.Ring{unitSquare}); !got.ConflictDetected {
		t.Error("Expected conflict without a shape cache")
	}
}

func TestDetect_LogsMalformedCandidateRing(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	pool := newPool(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", model.Ring{{0, 0}, {1, 1}}),
	)
	d := NewDetector(pool, geometry.NewBuilder(logger), nil, logger)

	d.Detect("X1", "T1", []model.Ring{unitSquare})

	entries := logs.FilterMessage("dropping malformed ring").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["claim"]; got != "X2,T2" {
		t.Errorf("Expected warning for X2,T2, got %v", got)
	}
}

func TestDetectClaim(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L1", offsetSq),
	)

	got, err := d.DetectClaim(model.Key{ClaimantID: "X1", ClaimID: "T1"})
	if err != nil {
		t.Fatalf("DetectClaim failed: %v", err)
	}
	if !got.ConflictDetected {
		t.Error("Expected stored boundary to conflict")
	}

	_, err = d.DetectClaim(model.Key{ClaimantID: "nobody", ClaimID: "none"})
	if !errors.Is(err, ErrUnknownClaim) {
		t.Errorf("Expected ErrUnknownClaim, got %v", err)
	}
}

func TestConflictResult_JSONShape(t *testing.T) {
	d, _ := newDetector(
		newClaim("X1", "T1", "L1", unitSquare),
		newClaim("X2", "T2", "L2", offsetSq),
	)

	data, err := json.Marshal(d.Detect("X1", "T1", []model.Ring{unitSquare}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"conflict_detected":false,"conflicts":[]}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}
