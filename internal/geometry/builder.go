package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/claimscope/internal/model"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// Reasons a ring is dropped
var (
	ErrShortPosition  = errors.New("position has fewer than two ordinates")
	ErrNonFinite      = errors.New("position has a non-finite ordinate")
	ErrTooFewVertices = errors.New("ring has fewer than 3 distinct vertices")
	ErrRejected       = errors.New("polygon rejected by geometry library")
)

// minDistinctVertices is the smallest vertex count that can enclose an area
const minDistinctVertices = 3

// RingIssue records why a ring was dropped
type RingIssue struct {
	Index int
	Err   error
}

func (i RingIssue) Error() string {
	return fmt.Sprintf("ring %d: %v", i.Index, i.Err)
}

func (i RingIssue) Unwrap() error {
	return i.Err
}

// Builder turns coordinate rings into planar GEOS geometries.
// Coordinates are taken as-is in a planar lon/lat frame. A Builder and the
// shapes it returns share one GEOS context and are safe for concurrent use.
type Builder struct {
	ctx    *geos.Context
	logger *zap.Logger
}

// NewBuilder creates a builder with its own GEOS context
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		ctx:    geos.NewContext(),
		logger: logger,
	}
}

// Build converts rings into a shape. Malformed rings are logged and skipped;
// nil means no ring produced a polygon.
func (b *Builder) Build(rings []model.Ring) *Shape {
	shape, issues := b.BuildReport(rings)
	for _, issue := range issues {
		b.logger.Warn("dropping malformed ring",
			zap.Int("ring", issue.Index),
			zap.Error(issue.Err))
	}
	return shape
}

// BuildReport is Build without logging; dropped rings are returned instead
func (b *Builder) BuildReport(rings []model.Ring) (*Shape, []RingIssue) {
	var (
		polygons []*geos.Geom
		issues   []RingIssue
		bounds   Bounds
	)

	for i, ring := range rings {
		coords, err := prepareRing(ring)
		if err != nil {
			issues = append(issues, RingIssue{Index: i, Err: err})
			continue
		}

		polygon, err := b.newPolygon(coords)
		if err != nil {
			issues = append(issues, RingIssue{Index: i, Err: err})
			continue
		}

		polygons = append(polygons, polygon)
		bounds = bounds.extend(coords)
	}

	switch len(polygons) {
	case 0:
		return nil, issues
	case 1:
		return b.newShape(polygons[0], 1, bounds), issues
	}

	multi, err := b.newMultiPolygon(polygons)
	if err != nil {
		b.logger.Error("multipolygon construction failed", zap.Int("parts", len(polygons)), zap.Error(err))
		return nil, issues
	}
	return b.newShape(multi, len(polygons), bounds), issues
}

func (b *Builder) newShape(g *geos.Geom, parts int, bounds Bounds) *Shape {
	return &Shape{
		geom:   g,
		parts:  parts,
		bounds: bounds,
		logger: b.logger,
	}
}

// newPolygon runs the GEOS constructor, which panics on rings it cannot use.
// NewPolygon does not take the context lock itself, unlike NewCollection and
// the predicates, so it is held here.
func (b *Builder) newPolygon(coords [][]float64) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%w: %v", ErrRejected, r)
		}
	}()

	b.ctx.Lock()
	defer b.ctx.Unlock()
	g = b.ctx.NewPolygon([][][]float64{coords})
	if g == nil {
		return nil, ErrRejected
	}
	return g, nil
}

func (b *Builder) newMultiPolygon(polygons []*geos.Geom) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%w: %v", ErrRejected, r)
		}
	}()

	g = b.ctx.NewCollection(geos.TypeIDMultiPolygon, polygons)
	if g == nil {
		return nil, ErrRejected
	}
	return g, nil
}

// prepareRing checks a ring and returns closed 2D coordinates
func prepareRing(ring model.Ring) ([][]float64, error) {
	coords := make([][]float64, 0, len(ring)+1)
	distinct := make(map[[2]float64]struct{}, len(ring))

	for _, pos := range ring {
		if len(pos) < 2 {
			return nil, ErrShortPosition
		}
		lon, lat := pos[0], pos[1]
		if !isFinite(lon) || !isFinite(lat) {
			return nil, ErrNonFinite
		}
		coords = append(coords, []float64{lon, lat})
		distinct[[2]float64{lon, lat}] = struct{}{}
	}

	if len(distinct) < minDistinctVertices {
		return nil, ErrTooFewVertices
	}

	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		coords = append(coords, []float64{first[0], first[1]})
	}

	return coords, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
