// Package nbs assigns nature-based-solution categories to grid cells and
// quantifies their benefits.
package nbs

import (
	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/wind"
)

// Decide applies the ordered rule set to a cell's metrics. The first matching
// rule wins.
func Decide(m model.Metrics, hasGreenBlue bool) model.Category {
	d, z0 := m.Density, m.RoughnessLength
	switch {
	case hasGreenBlue:
		return model.CategoryNone
	case d >= 0.7:
		return model.CategoryGreenRoof
	case d >= 0.6 && z0 >= 1.0:
		return model.CategoryGreenRoof
	case d > 0.3 && d < 0.6 && z0 >= 0.5:
		return model.CategoryVentilationCorridor
	case d > 0.3 && d < 0.6:
		return model.CategoryUrbanForest
	case d <= 0.3 && z0 < 0.5:
		return model.CategoryPermeablePavement
	case d <= 0.3:
		return model.CategoryRainGarden
	default:
		return model.CategoryNone
	}
}

// Context is optional site information that can specialize a decision.
type Context struct {
	NearWater       bool
	WindDeg         *float64
	CorridorAxisDeg *float64
}

// Refine specializes a primary category. It never moves a cell between
// primary branches: only Rain Garden becomes Wetland Restoration near water.
func Refine(cat model.Category, ctx Context) model.Category {
	if cat == model.CategoryRainGarden && ctx.NearWater {
		return model.CategoryWetlandRestoration
	}
	return cat
}

// Classify sets the category of cell and, for ventilation corridors, the
// bearing the corridor should follow.
func Classify(cell *model.GridCell, ctx Context) {
	ctx.NearWater = ctx.NearWater || cell.NearWater
	cell.Category = Refine(Decide(cell.Metrics, cell.HasGreenBlue), ctx)
	cell.CorridorBearing = nil
	cell.CorridorAligned = nil

	if cell.Category != model.CategoryVentilationCorridor || ctx.WindDeg == nil {
		return
	}
	bearing := wind.Normalize(*ctx.WindDeg)
	cell.CorridorBearing = &bearing
	if ctx.CorridorAxisDeg != nil {
		aligned := wind.Aligned(bearing, *ctx.CorridorAxisDeg, wind.AlignmentToleranceDeg)
		cell.CorridorAligned = &aligned
	}
}
