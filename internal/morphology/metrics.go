package morphology

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/spatial"
)

// SVFReferenceHeightM is the height at which a fully built cell loses all
// sky view.
const SVFReferenceHeightM = 20.0

// Overlay is the result of intersecting one cell with the building layer.
type Overlay struct {
	BuiltArea      float64
	WeightedHeight float64
	BuildingCount  int
}

// IntersectArea returns the area of shape inside cell.
func IntersectArea(cell orb.Bound, shape spatial.Shape) float64 {
	if !cell.Intersects(shape.Bound) {
		return 0
	}
	if contains(cell, shape.Bound) {
		return shape.Area
	}
	clipped := clip.MultiPolygon(cell, shape.MultiPolygon)
	if len(clipped) == 0 {
		return 0
	}
	return planar.Area(clipped)
}

func contains(outer, inner orb.Bound) bool {
	return inner.Min.X() >= outer.Min.X() && inner.Min.Y() >= outer.Min.Y() &&
		inner.Max.X() <= outer.Max.X() && inner.Max.Y() <= outer.Max.Y()
}

// OverlayCell intersects the cell with the footprints listed in candidates.
// Footprints that only touch the cell boundary are not counted.
func OverlayCell(cell orb.Bound, footprints []spatial.Footprint, candidates []int32) Overlay {
	var o Overlay
	for _, i := range candidates {
		fp := &footprints[i]
		a := IntersectArea(cell, fp.Shape)
		if a <= 0 {
			continue
		}
		o.BuiltArea += a
		o.WeightedHeight += a * ResolveHeight(fp.Building)
		o.BuildingCount++
	}
	return o
}

// FromOverlay turns an overlay into the four cell metrics. cellArea must be
// positive.
func FromOverlay(o Overlay, cellArea float64) model.Metrics {
	m := model.Metrics{
		BuiltArea:     o.BuiltArea,
		BuildingCount: o.BuildingCount,
	}
	if o.BuiltArea > 0 {
		m.Density = clamp01(o.BuiltArea / cellArea)
		m.MeanBuildingHeight = o.WeightedHeight / o.BuiltArea
	}
	m.RoughnessLength = 0.5 * m.MeanBuildingHeight * m.Density
	m.SkyViewFactor = clamp01(1 - m.Density*math.Min(m.MeanBuildingHeight/SVFReferenceHeightM, 1))
	m.DensityClass = DensityClass(m.Density)
	m.RoughnessClass = RoughnessClass(m.RoughnessLength)
	return m
}

// Compute fills the morphology metrics of cell.
func Compute(cell *model.GridCell, footprints []spatial.Footprint, candidates []int32) {
	cell.Metrics = FromOverlay(OverlayCell(cell.Bound, footprints, candidates), cell.Area)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
