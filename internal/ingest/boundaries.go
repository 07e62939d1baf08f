package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ppiankov/claimscope/internal/model"
)

// Boundaries holds the exterior rings of one layer, by claim identity
type Boundaries map[model.Key][]model.Ring

// LoadBoundaries reads a GeoJSON FeatureCollection or a single Feature.
// Polygons contribute their exterior ring and multipolygons the exterior of every part,
// accumulated per claim in file order. Features without ids or geometry are skipped.
func LoadBoundaries(r io.Reader, kind model.ClaimKind) (Boundaries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s boundaries: %w", kind, err)
	}

	// numbers stay json.Number so an out-of-range ordinate poisons one ring, not the file
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s boundaries: %w", kind, err)
	}

	out := make(Boundaries)
	switch strings.ToLower(getStr(doc, "type")) {
	case "featurecollection":
		features, _ := doc["features"].([]any)
		for _, it := range features {
			if f, ok := it.(map[string]any); ok {
				addFeature(out, f)
			}
		}
	case "feature":
		addFeature(out, doc)
	default:
		return nil, fmt.Errorf("unsupported %s boundaries document type %q", kind, getStr(doc, "type"))
	}

	return out, nil
}

func addFeature(out Boundaries, f map[string]any) {
	props, _ := f["properties"].(map[string]any)
	key := featureKey(props)
	if key.ClaimantID == "" || key.ClaimID == "" {
		return
	}
	g, ok := f["geometry"].(map[string]any)
	if !ok {
		return
	}

	coords, _ := g["coordinates"].([]any)
	switch strings.ToLower(getStr(g, "type")) {
	case "polygon":
		if ring, ok := exterior(coords); ok {
			out[key] = append(out[key], ring)
		}
	case "multipolygon":
		for _, part := range coords {
			rings, _ := part.([]any)
			if ring, ok := exterior(rings); ok {
				out[key] = append(out[key], ring)
			}
		}
	}
}

// exterior converts the first ring of a polygon's coordinate array
func exterior(rings []any) (model.Ring, bool) {
	if len(rings) == 0 {
		return nil, false
	}
	positions, ok := rings[0].([]any)
	if !ok {
		return nil, false
	}

	ring := make(model.Ring, 0, len(positions))
	for _, p := range positions {
		vv, ok := p.([]any)
		if !ok {
			// keep the vertex count so the builder drops the ring instead of reshaping it
			ring = append(ring, model.Position{math.NaN(), math.NaN()})
			continue
		}
		pos := make(model.Position, 0, len(vv))
		for _, v := range vv {
			pos = append(pos, toFloat(v))
		}
		ring = append(ring, pos)
	}
	return ring, true
}

func featureKey(props map[string]any) model.Key {
	key := model.Key{
		ClaimantID: propStr(props, "beneficiary_id"),
		ClaimID:    propStr(props, "title_id"),
	}
	if key.ClaimantID == "" {
		key.ClaimantID = propStr(props, "claimant_id")
	}
	if key.ClaimID == "" {
		key.ClaimID = propStr(props, "claim_id")
	}
	return key
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// propStr also accepts numeric ids, which some exporters emit
func propStr(m map[string]any, k string) string {
	switch v := m[k].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func toFloat(v any) float64 {
	if x, ok := v.(json.Number); ok {
		if f, err := x.Float64(); err == nil {
			return f
		}
	}
	// non-numeric ordinates poison the ring so the builder drops it
	return math.NaN()
}
