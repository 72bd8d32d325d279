package pipeline

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/priority"
)

// RunStats are the headline numbers of a plan.
type RunStats struct {
	TotalCells          int     `json:"total_cells"`
	InterventionCells   int     `json:"intervention_cells"`
	CoveragePct         float64 `json:"coverage_pct"`
	StudyAreaHa         float64 `json:"study_area_ha"`
	InterventionAreaHa  float64 `json:"intervention_area_ha"`
	TotalCost           float64 `json:"total_cost"`
	CostPerHa           float64 `json:"cost_per_ha"`
	MeanDensity         float64 `json:"mean_density"`
	MeanHeight          float64 `json:"mean_building_height"`
	MeanRoughness       float64 `json:"mean_roughness_length"`
	MeanSkyViewFactor   float64 `json:"mean_sky_view_factor"`
	SelectedCells       int     `json:"selected_cells"`
	SelectedCost        float64 `json:"selected_cost"`
	DiscardedGeometries int     `json:"discarded_geometries"`
}

// ComputeStats derives run statistics from evaluated cells.
func ComputeStats(cells []model.GridCell, sel priority.Selection, discarded int) RunStats {
	s := RunStats{
		TotalCells:          len(cells),
		SelectedCells:       sel.SelectedCount,
		SelectedCost:        sel.SelectedCost,
		DiscardedGeometries: discarded,
	}
	if len(cells) == 0 {
		return s
	}

	density := make([]float64, len(cells))
	height := make([]float64, len(cells))
	rough := make([]float64, len(cells))
	svf := make([]float64, len(cells))
	var area, interventionArea float64
	for i := range cells {
		c := &cells[i]
		density[i] = c.Metrics.Density
		height[i] = c.Metrics.MeanBuildingHeight
		rough[i] = c.Metrics.RoughnessLength
		svf[i] = c.Metrics.SkyViewFactor
		area += c.Area
		if c.Intervention() {
			s.InterventionCells++
			interventionArea += c.Area
			s.TotalCost += c.Cost
		}
	}

	s.CoveragePct = float64(s.InterventionCells) / float64(s.TotalCells) * 100
	s.StudyAreaHa = area / nbs.SqMPerHectare
	s.InterventionAreaHa = interventionArea / nbs.SqMPerHectare
	if s.InterventionAreaHa > 0 {
		s.CostPerHa = s.TotalCost / s.InterventionAreaHa
	}
	s.MeanDensity = stat.Mean(density, nil)
	s.MeanHeight = stat.Mean(height, nil)
	s.MeanRoughness = stat.Mean(rough, nil)
	s.MeanSkyViewFactor = stat.Mean(svf, nil)
	return s
}
