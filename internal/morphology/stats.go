package morphology

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/nbs-planner/internal/spatial"
)

// BuildingStats describes the sanitized building collection.
type BuildingStats struct {
	Total           int     `json:"total_buildings"`
	TotalFootprint  float64 `json:"total_footprint_m2"`
	MeanFootprint   float64 `json:"mean_footprint_m2"`
	MedianFootprint float64 `json:"median_footprint_m2"`
	MeanHeight      float64 `json:"mean_height_m"`
	MedianHeight    float64 `json:"median_height_m"`
	MaxHeight       float64 `json:"max_height_m"`
}

// Stats summarizes footprints. An empty input yields zero values.
func Stats(footprints []spatial.Footprint) BuildingStats {
	if len(footprints) == 0 {
		return BuildingStats{}
	}
	areas := make([]float64, len(footprints))
	heights := make([]float64, len(footprints))
	for i := range footprints {
		areas[i] = footprints[i].Area
		heights[i] = ResolveHeight(footprints[i].Building)
	}
	sort.Float64s(areas)
	sort.Float64s(heights)

	return BuildingStats{
		Total:           len(footprints),
		TotalFootprint:  floats.Sum(areas),
		MeanFootprint:   stat.Mean(areas, nil),
		MedianFootprint: median(areas),
		MeanHeight:      stat.Mean(heights, nil),
		MedianHeight:    median(heights),
		MaxHeight:       floats.Max(heights),
	}
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
