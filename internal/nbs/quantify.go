package nbs

import (
	"github.com/sells-group/nbs-planner/internal/model"
)

// Impact coefficients.
const (
	SqMPerHectare   = 10000.0
	PM25PerTreeKg   = 0.015
	PM25PerRoofSqM  = 0.0025
	CO2PerTreeKg    = 22.0
	CO2PerRoofSqM   = 1.5
	ScorePerBenefit = 20.0
)

// TreeCount returns the whole number of trees planted on area square meters.
func TreeCount(p Profile, area float64) int {
	if p.TreesPerHectare <= 0 || area <= 0 {
		return 0
	}
	return int(area / SqMPerHectare * p.TreesPerHectare)
}

// Assess computes the benefit vector, overall score and environmental impact
// of placing p on area square meters.
func Assess(p Profile, area float64) (model.BenefitVector, float64, model.Impact) {
	trees := TreeCount(p, area)
	var roof float64
	if p.VegetatedRoof {
		roof = area
	}
	impact := model.Impact{
		CoolingC:      p.CoolingC,
		PM25KgYr:      float64(trees)*PM25PerTreeKg + roof*PM25PerRoofSqM,
		CO2KgYr:       float64(trees)*CO2PerTreeKg + roof*CO2PerRoofSqM,
		StormwaterPct: p.StormwaterPct,
		TreeCount:     trees,
	}
	return p.Benefits, p.Benefits.Mean() * ScorePerBenefit, impact
}

// Quantify fills the benefit and impact fields of an already classified cell.
// None cells are reset to zero values.
func (t Table) Quantify(cell *model.GridCell) error {
	if cell.Category == model.CategoryNone {
		cell.Benefits = model.BenefitVector{}
		cell.OverallScore = 0
		cell.Impact = model.Impact{}
		return nil
	}
	p, err := t.Profile(cell.Category)
	if err != nil {
		return err
	}
	cell.Benefits, cell.OverallScore, cell.Impact = Assess(p, cell.Area)
	return nil
}
