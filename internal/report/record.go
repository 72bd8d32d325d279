// Package report writes plans as JSON, CSV, GeoJSON and XLSX.
package report

import (
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/nbs-planner/internal/model"
)

// CellRecord is the flat per-cell export row.
type CellRecord struct {
	CellID             string   `csv:"cell_id"`
	Row                int      `csv:"row"`
	Col                int      `csv:"col"`
	Geometry           string   `csv:"geometry_wkt"`
	Density            float64  `csv:"density"`
	RoughnessLength    float64  `csv:"roughness_length"`
	MeanBuildingHeight float64  `csv:"mean_building_height"`
	SkyViewFactor      float64  `csv:"sky_view_factor"`
	BuiltArea          float64  `csv:"built_area_m2"`
	BuildingCount      int      `csv:"building_count"`
	DensityClass       string   `csv:"density_class"`
	RoughnessClass     string   `csv:"roughness_class"`
	HasGreenBlue       bool     `csv:"has_existing_green_blue"`
	NearWater          bool     `csv:"near_water"`
	PopulationWeight   *float64 `csv:"population_weight,omitempty"`
	Category           string   `csv:"proposed_category"`
	CorridorBearing    *float64 `csv:"corridor_bearing_deg,omitempty"`
	CorridorAligned    *bool    `csv:"corridor_aligned,omitempty"`
	ClimateAdaptation  float64  `csv:"benefit_climate_adaptation"`
	Biodiversity       float64  `csv:"benefit_biodiversity"`
	AirQuality         float64  `csv:"benefit_air_quality"`
	WaterManagement    float64  `csv:"benefit_water_management"`
	SocialWellbeing    float64  `csv:"benefit_social_wellbeing"`
	EconomicValue      float64  `csv:"benefit_economic_value"`
	OverallScore       float64  `csv:"overall_score"`
	CoolingC           float64  `csv:"cooling_c"`
	PM25KgYr           float64  `csv:"pm25_kg_yr"`
	CO2KgYr            float64  `csv:"co2_kg_yr"`
	StormwaterPct      float64  `csv:"stormwater_pct"`
	TreeCount          int      `csv:"tree_count"`
	Cost               float64  `csv:"cost"`
	Priority           float64  `csv:"composite_priority"`
	Rank               int      `csv:"rank"`
	Selected           bool     `csv:"selected"`
}

// NewCellRecord flattens one cell.
func NewCellRecord(c *model.GridCell) CellRecord {
	geomWKT, err := wkt.Marshal(c.Geometry())
	if err != nil {
		geomWKT = ""
	}
	return CellRecord{
		CellID:             c.ID.String(),
		Row:                c.ID.Row,
		Col:                c.ID.Col,
		Geometry:           geomWKT,
		Density:            c.Metrics.Density,
		RoughnessLength:    c.Metrics.RoughnessLength,
		MeanBuildingHeight: c.Metrics.MeanBuildingHeight,
		SkyViewFactor:      c.Metrics.SkyViewFactor,
		BuiltArea:          c.Metrics.BuiltArea,
		BuildingCount:      c.Metrics.BuildingCount,
		DensityClass:       c.Metrics.DensityClass,
		RoughnessClass:     c.Metrics.RoughnessClass,
		HasGreenBlue:       c.HasGreenBlue,
		NearWater:          c.NearWater,
		PopulationWeight:   c.PopulationWeight,
		Category:           c.Category.String(),
		CorridorBearing:    c.CorridorBearing,
		CorridorAligned:    c.CorridorAligned,
		ClimateAdaptation:  c.Benefits[model.BenefitClimateAdaptation],
		Biodiversity:       c.Benefits[model.BenefitBiodiversity],
		AirQuality:         c.Benefits[model.BenefitAirQuality],
		WaterManagement:    c.Benefits[model.BenefitWaterManagement],
		SocialWellbeing:    c.Benefits[model.BenefitSocialWellbeing],
		EconomicValue:      c.Benefits[model.BenefitEconomicValue],
		OverallScore:       c.OverallScore,
		CoolingC:           c.Impact.CoolingC,
		PM25KgYr:           c.Impact.PM25KgYr,
		CO2KgYr:            c.Impact.CO2KgYr,
		StormwaterPct:      c.Impact.StormwaterPct,
		TreeCount:          c.Impact.TreeCount,
		Cost:               c.Cost,
		Priority:           c.Priority,
		Rank:               c.Rank,
		Selected:           c.Selected,
	}
}

// values lists the record in column order. Nil pointers become nil.
func (r CellRecord) values() []any {
	return []any{
		r.CellID, r.Row, r.Col, r.Geometry,
		r.Density, r.RoughnessLength, r.MeanBuildingHeight, r.SkyViewFactor,
		r.BuiltArea, r.BuildingCount, r.DensityClass, r.RoughnessClass,
		r.HasGreenBlue, r.NearWater, deref(r.PopulationWeight),
		r.Category, deref(r.CorridorBearing), deref(r.CorridorAligned),
		r.ClimateAdaptation, r.Biodiversity, r.AirQuality,
		r.WaterManagement, r.SocialWellbeing, r.EconomicValue,
		r.OverallScore, r.CoolingC, r.PM25KgYr, r.CO2KgYr, r.StormwaterPct, r.TreeCount,
		r.Cost, r.Priority, r.Rank, r.Selected,
	}
}

// SummaryRecord is the flat per-category export row.
type SummaryRecord struct {
	Category              string  `csv:"category"`
	BasePriority          int     `csv:"base_priority"`
	Count                 int     `csv:"count"`
	TotalArea             float64 `csv:"total_area_m2"`
	TotalCost             float64 `csv:"total_cost"`
	MeanClimateAdaptation float64 `csv:"mean_climate_adaptation"`
	MeanBiodiversity      float64 `csv:"mean_biodiversity"`
	MeanAirQuality        float64 `csv:"mean_air_quality"`
	MeanWaterManagement   float64 `csv:"mean_water_management"`
	MeanSocialWellbeing   float64 `csv:"mean_social_wellbeing"`
	MeanEconomicValue     float64 `csv:"mean_economic_value"`
	MeanCoolingC          float64 `csv:"mean_cooling_c"`
	MeanPM25KgYr          float64 `csv:"mean_pm25_kg_yr"`
	MeanCO2KgYr           float64 `csv:"mean_co2_kg_yr"`
	MeanStormwaterPct     float64 `csv:"mean_stormwater_pct"`
	MeanTreeCount         float64 `csv:"mean_tree_count"`
	TotalTrees            int     `csv:"total_trees"`
	SelectedCount         int     `csv:"selected_count"`
	SelectedCost          float64 `csv:"selected_cost"`
}

// NewSummaryRecord flattens one category summary.
func NewSummaryRecord(s *model.InterventionSummary) SummaryRecord {
	b := s.MeanBenefits
	return SummaryRecord{
		Category:              s.Category.String(),
		BasePriority:          s.Rank,
		Count:                 s.Count,
		TotalArea:             s.TotalArea,
		TotalCost:             s.TotalCost,
		MeanClimateAdaptation: b[model.BenefitClimateAdaptation],
		MeanBiodiversity:      b[model.BenefitBiodiversity],
		MeanAirQuality:        b[model.BenefitAirQuality],
		MeanWaterManagement:   b[model.BenefitWaterManagement],
		MeanSocialWellbeing:   b[model.BenefitSocialWellbeing],
		MeanEconomicValue:     b[model.BenefitEconomicValue],
		MeanCoolingC:          s.MeanImpact.CoolingC,
		MeanPM25KgYr:          s.MeanImpact.PM25KgYr,
		MeanCO2KgYr:           s.MeanImpact.CO2KgYr,
		MeanStormwaterPct:     s.MeanImpact.StormwaterPct,
		MeanTreeCount:         s.MeanImpact.TreeCount,
		TotalTrees:            s.TotalTrees,
		SelectedCount:         s.SelectedCount,
		SelectedCost:          s.SelectedCost,
	}
}

func (r SummaryRecord) values() []any {
	return []any{
		r.Category, r.BasePriority, r.Count, r.TotalArea, r.TotalCost,
		r.MeanClimateAdaptation, r.MeanBiodiversity, r.MeanAirQuality,
		r.MeanWaterManagement, r.MeanSocialWellbeing, r.MeanEconomicValue,
		r.MeanCoolingC, r.MeanPM25KgYr, r.MeanCO2KgYr, r.MeanStormwaterPct, r.MeanTreeCount,
		r.TotalTrees, r.SelectedCount, r.SelectedCost,
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
