// Package greenblue flags cells that already contain vegetation or water and
// cells that lie near water.
package greenblue

import (
	"github.com/paulmach/orb"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/morphology"
	"github.com/sells-group/nbs-planner/internal/spatial"
)

// Overlaps reports whether any candidate area has a non-zero intersection
// with the cell.
func Overlaps(cell orb.Bound, areas []spatial.Area, candidates []int32) bool {
	for _, i := range candidates {
		if morphology.IntersectArea(cell, areas[i].Shape) > 0 {
			return true
		}
	}
	return false
}

// NearWater reports whether a water area lies within bufferM of the cell.
// A non-positive buffer disables the check.
func NearWater(cell orb.Bound, areas []spatial.Area, candidates []int32, bufferM float64) bool {
	if bufferM <= 0 {
		return false
	}
	padded := cell.Pad(bufferM)
	for _, i := range candidates {
		if areas[i].Kind != model.KindWater {
			continue
		}
		if morphology.IntersectArea(padded, areas[i].Shape) > 0 {
			return true
		}
	}
	return false
}

// Tag sets the green/blue flags on cell. An explicit water flag from the
// caller is kept even when no water geometry is near.
func Tag(cell *model.GridCell, areas []spatial.Area, candidates []int32, bufferM float64) {
	cell.HasGreenBlue = Overlaps(cell.Bound, areas, candidates)
	if !cell.NearWater {
		cell.NearWater = NearWater(cell.Bound, areas, candidates, bufferM)
	}
}

// IndexBounds returns the bounds to index areas under. Bounds are padded by
// bufferM so the same candidates serve both the overlap and the proximity
// checks.
func IndexBounds(areas []spatial.Area, bufferM float64) []orb.Bound {
	out := make([]orb.Bound, len(areas))
	for i := range areas {
		b := areas[i].Bound
		if bufferM > 0 {
			b = b.Pad(bufferM)
		}
		out[i] = b
	}
	return out
}
