// Package conflict finds claims whose boundaries overlap a claim under review.
//
// Detection is a linear scan over a point-in-time snapshot of the pool: the
// reviewed claim itself is skipped, candidates outside its locality are
// skipped when the locality is known, and every remaining candidate whose
// shape intersects the reviewed boundary is reported in pool order.
package conflict

import (
	"errors"

	"github.com/ppiankov/claimscope/internal/geometry"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/store"
	"go.uber.org/zap"
)

// ErrUnknownClaim is returned by DetectClaim when the key is not in the pool
var ErrUnknownClaim = errors.New("claim not found in pool")

// Detector scans the pool for overlapping claims
type Detector struct {
	pool    *store.Pool
	builder *geometry.Builder
	shapes  *ShapeCache // nil disables memoization
	logger  *zap.Logger
}

// NewDetector creates a detector over pool. shapes may be nil.
func NewDetector(pool *store.Pool, builder *geometry.Builder, shapes *ShapeCache, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = geometry.NewBuilder(logger)
	}
	return &Detector{
		pool:    pool,
		builder: builder,
		shapes:  shapes,
		logger:  logger,
	}
}

// Detect reports every other claim in the reviewed claim's locality whose
// boundary intersects rings. It never fails: malformed rings are dropped and
// an unknown reviewed claim only disables locality scoping.
func (d *Detector) Detect(claimantID, claimID string, rings []model.Ring) model.ConflictResult {
	self := model.Key{ClaimantID: claimantID, ClaimID: claimID}
	claims, version := d.pool.Snapshot()

	locality, scoped := "", false
	found := false
	for _, c := range claims {
		if c.Key() == self {
			locality, scoped = c.Locality()
			found = true
			break
		}
	}
	if !found {
		d.logger.Debug("reviewed claim not in pool, locality scoping disabled", zap.Stringer("claim", self))
	}

	target, issues := d.builder.BuildReport(rings)
	d.logIssues(self, issues)

	conflicts := make([]model.Conflict, 0)
	if target == nil {
		d.logger.Debug("reviewed claim has no geometry", zap.Stringer("claim", self))
		return model.NewConflictResult(conflicts)
	}

	for _, other := range claims {
		key := other.Key()
		if key == self {
			continue
		}
		if scoped {
			if loc, ok := other.Locality(); !ok || loc != locality {
				continue
			}
		}

		shape := d.shapeFor(other, version)
		if target.Intersects(shape) {
			if ce := d.logger.Check(zap.DebugLevel, "overlap"); ce != nil {
				ce.Write(zap.Stringer("claim", self), zap.Stringer("other", key), zap.String("other_wkt", shape.WKT()))
			}
			conflicts = append(conflicts, model.Conflict{
				ConflictingClaimID: other.ClaimID,
				OtherClaimantID:    other.ClaimantID,
			})
		}
	}

	if len(conflicts) > 0 {
		d.logger.Info("boundary conflicts detected",
			zap.Stringer("claim", self),
			zap.String("locality", locality),
			zap.Int("conflicts", len(conflicts)))
	}

	return model.NewConflictResult(conflicts)
}

// DetectClaim runs Detect with the boundary stored in the pool for key
func (d *Detector) DetectClaim(key model.Key) (model.ConflictResult, error) {
	claim, ok := d.pool.Get(key)
	if !ok {
		return model.NewConflictResult(nil), ErrUnknownClaim
	}
	return d.Detect(key.ClaimantID, key.ClaimID, claim.Boundary), nil
}

// Builder exposes the polygon builder the detector uses
func (d *Detector) Builder() *geometry.Builder {
	return d.builder
}

// shapeFor builds the candidate's shape, reusing the cached one for this pool version
func (d *Detector) shapeFor(c model.Claim, version uint64) *geometry.Shape {
	key := c.Key()
	if shape, ok := d.shapes.Get(key, version); ok {
		return shape
	}

	shape, issues := d.builder.BuildReport(c.Boundary)
	d.logIssues(key, issues)
	d.shapes.Set(key, version, shape)
	return shape
}

func (d *Detector) logIssues(key model.Key, issues []geometry.RingIssue) {
	for _, issue := range issues {
		d.logger.Warn("dropping malformed ring",
			zap.Stringer("claim", key),
			zap.Int("ring", issue.Index),
			zap.Error(issue.Err))
	}
}
