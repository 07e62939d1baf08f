package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/claimscope/internal/model"
)

// ErrInvalidRings marks ring input that is not a list of rings of positions
var ErrInvalidRings = errors.New("invalid ring list")

// ErrInvalidKey marks a blank claimant or claim id
var ErrInvalidKey = errors.New("invalid claim key")

// ParseRings decodes a JSON ring list: [[[lon, lat], ...], ...].
// Structural problems are contract violations and fail the call. Ordinates
// that are not numbers become NaN so the polygon builder drops that ring.
func ParseRings(raw []byte) ([]model.Ring, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidRings)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRings, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after ring list", ErrInvalidRings)
	}
	if doc == nil {
		return []model.Ring{}, nil
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of rings, got %s", ErrInvalidRings, kindOf(doc))
	}

	rings := make([]model.Ring, 0, len(list))
	for i, rawRing := range list {
		positions, ok := rawRing.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: ring %d is %s, not an array", ErrInvalidRings, i, kindOf(rawRing))
		}

		ring := make(model.Ring, 0, len(positions))
		for j, rawPos := range positions {
			ordinates, ok := rawPos.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: ring %d position %d is %s, not an array", ErrInvalidRings, i, j, kindOf(rawPos))
			}
			pos := make(model.Position, len(ordinates))
			for k, v := range ordinates {
				pos[k] = toOrdinate(v)
			}
			ring = append(ring, pos)
		}
		rings = append(rings, ring)
	}

	return rings, nil
}

// ValidateKey checks that both halves of a claim key are present
func ValidateKey(claimantID, claimID string) error {
	if strings.TrimSpace(claimantID) == "" {
		return fmt.Errorf("%w: claimant id is required", ErrInvalidKey)
	}
	if strings.TrimSpace(claimID) == "" {
		return fmt.Errorf("%w: claim id is required", ErrInvalidKey)
	}
	return nil
}

// toOrdinate accepts JSON numbers and numeric strings; numbers beyond float64 range become NaN
func toOrdinate(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
