// Package cost prices interventions from a fixed rate table.
package cost

import (
	"github.com/sells-group/nbs-planner/internal/model"
)

// Basis is the unit an intervention is priced by.
type Basis string

// Pricing bases.
const (
	PerArea Basis = "area"
	PerTree Basis = "tree"
)

// Rate holds the unit price of one intervention category.
type Rate struct {
	Basis   Basis   `yaml:"basis" mapstructure:"basis" json:"basis"`
	PerSqM  float64 `yaml:"per_sqm" mapstructure:"per_sqm" json:"per_sqm,omitempty"`
	PerTree float64 `yaml:"per_tree" mapstructure:"per_tree" json:"per_tree,omitempty"`
}

// Price returns the cost of area square meters holding trees trees.
func (r Rate) Price(area float64, trees int) float64 {
	if r.Basis == PerTree {
		return float64(trees) * r.PerTree
	}
	return area * r.PerSqM
}

// Rates maps each category to its unit price.
type Rates map[model.Category]Rate

// Calculator computes intervention costs.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate returns the cost of one intervention. The None category is free.
// A category without a rate yields *model.UnknownCategoryError.
func (c *Calculator) Estimate(cat model.Category, area float64, trees int) (float64, error) {
	if cat == model.CategoryNone {
		return 0, nil
	}
	rate, ok := c.rates[cat]
	if !ok {
		return 0, &model.UnknownCategoryError{Name: cat.String()}
	}
	return rate.Price(area, trees), nil
}

// Rate returns the configured rate for cat.
func (c *Calculator) Rate(cat model.Category) (Rate, bool) {
	r, ok := c.rates[cat]
	return r, ok
}

// DefaultRates returns the default unit prices.
func DefaultRates() Rates {
	return Rates{
		model.CategoryGreenRoof:           {Basis: PerArea, PerSqM: 150},
		model.CategoryUrbanForest:         {Basis: PerTree, PerTree: 5000},
		model.CategoryVentilationCorridor: {Basis: PerArea, PerSqM: 100},
		model.CategoryPermeablePavement:   {Basis: PerArea, PerSqM: 80},
		model.CategoryWetlandRestoration:  {Basis: PerArea, PerSqM: 60},
		model.CategoryRainGarden:          {Basis: PerArea, PerSqM: 70},
	}
}
