package model

// ImpactMeans averages Impact over the cells of one category.
type ImpactMeans struct {
	CoolingC      float64 `json:"cooling_c"`
	PM25KgYr      float64 `json:"pm25_kg_yr"`
	CO2KgYr       float64 `json:"co2_kg_yr"`
	StormwaterPct float64 `json:"stormwater_pct"`
	TreeCount     float64 `json:"tree_count"`
}

// InterventionSummary aggregates all cells assigned one category. It is always
// derived from the full cell set and never edited in place.
type InterventionSummary struct {
	Category      Category      `json:"category"`
	Rank          int           `json:"base_priority"`
	Count         int           `json:"count"`
	TotalArea     float64       `json:"total_area_m2"`
	TotalCost     float64       `json:"total_cost"`
	MeanBenefits  BenefitVector `json:"mean_benefit_vector"`
	MeanImpact    ImpactMeans   `json:"mean_environmental_impact"`
	TotalTrees    int           `json:"total_trees"`
	SelectedCount int           `json:"selected_count"`
	SelectedCost  float64       `json:"selected_cost"`
}
