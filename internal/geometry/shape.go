package geometry

import (
	"math"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// Shape is a built claim geometry: a polygon or a multipolygon.
// A nil *Shape stands for "no geometry" and never intersects anything.
type Shape struct {
	geom   *geos.Geom
	parts  int
	bounds Bounds
	logger *zap.Logger
}

// Parts returns how many polygons make up the shape
func (s *Shape) Parts() int {
	if s == nil {
		return 0
	}
	return s.parts
}

// Bounds returns the bounding box of the shape
func (s *Shape) Bounds() Bounds {
	if s == nil {
		return Bounds{}
	}
	return s.bounds
}

// WKT renders the shape for logs and debugging
func (s *Shape) WKT() string {
	if s == nil {
		return "POLYGON EMPTY"
	}
	return s.geom.ToWKT()
}

// Intersects reports whether the shapes share any point, boundary contact included.
// Absent geometry on either side is never an intersection; a GEOS failure is
// logged and counts as no intersection.
func (s *Shape) Intersects(other *Shape) (hit bool) {
	if s == nil || other == nil {
		return false
	}
	if !s.bounds.Overlaps(other.bounds) {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("intersects predicate failed", zap.Any("panic", r))
			hit = false
		}
	}()

	return s.geom.Intersects(other.geom)
}

// Bounds is an axis-aligned box in lon/lat
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
	valid          bool
}

// IsEmpty reports whether no coordinate has been added
func (b Bounds) IsEmpty() bool {
	return !b.valid
}

// Overlaps reports whether two closed boxes share any point
func (b Bounds) Overlaps(o Bounds) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

func (b Bounds) extend(coords [][]float64) Bounds {
	if !b.valid {
		b = Bounds{
			MinLon: math.Inf(1), MinLat: math.Inf(1),
			MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
			valid: true,
		}
	}
	for _, c := range coords {
		b.MinLon = math.Min(b.MinLon, c[0])
		b.MinLat = math.Min(b.MinLat, c[1])
		b.MaxLon = math.Max(b.MaxLon, c[0])
		b.MaxLat = math.Max(b.MaxLat, c[1])
	}
	return b
}
