// Package morphology derives urban-form metrics for grid cells from the
// building footprints that overlap them.
package morphology

import (
	"strings"

	"github.com/sells-group/nbs-planner/internal/model"
)

const (
	// MetersPerFloor converts a floor count to a height.
	MetersPerFloor = 3.0
	// DefaultHeightM is used when nothing else resolves a height.
	DefaultHeightM = 6.0
)

// CategoryHeights are typical heights by building category tag, in meters.
var CategoryHeights = map[string]float64{
	"apartments":  18,
	"commercial":  15,
	"retail":      9,
	"industrial":  12,
	"house":       6,
	"residential": 9,
	"detached":    6,
}

// ResolveHeight returns the first usable height in order: explicit height,
// floor count, category heuristic, default. A present floor count of zero
// resolves to 0 m; only a negative count is treated as missing.
func ResolveHeight(b *model.Building) float64 {
	if b.Height != nil && *b.Height > 0 {
		return *b.Height
	}
	if b.Floors != nil && *b.Floors >= 0 {
		return float64(*b.Floors) * MetersPerFloor
	}
	if h, ok := CategoryHeights[strings.ToLower(strings.TrimSpace(b.Category))]; ok {
		return h
	}
	return DefaultHeightM
}
