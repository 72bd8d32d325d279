package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/priority"
)

// Summarize aggregates cells per intervention category. None is excluded.
// Summaries are ordered by base rank, then category. Cells are accumulated in
// slice order so repeated runs produce identical sums.
func Summarize(cells []model.GridCell, rank priority.RankFunc) []model.InterventionSummary {
	type acc struct {
		sum      model.InterventionSummary
		benefits [model.BenefitDimensions]float64
		cooling  []float64
		pm25     []float64
		co2      []float64
		storm    []float64
		trees    []float64
	}

	groups := make(map[model.Category]*acc)
	var order []model.Category
	for i := range cells {
		c := &cells[i]
		if !c.Intervention() {
			continue
		}
		a, ok := groups[c.Category]
		if !ok {
			a = &acc{sum: model.InterventionSummary{Category: c.Category, Rank: rank(c.Category)}}
			groups[c.Category] = a
			order = append(order, c.Category)
		}
		a.sum.Count++
		a.sum.TotalArea += c.Area
		a.sum.TotalCost += c.Cost
		a.sum.TotalTrees += c.Impact.TreeCount
		if c.Selected {
			a.sum.SelectedCount++
			a.sum.SelectedCost += c.Cost
		}
		floats.Add(a.benefits[:], c.Benefits[:])
		a.cooling = append(a.cooling, c.Impact.CoolingC)
		a.pm25 = append(a.pm25, c.Impact.PM25KgYr)
		a.co2 = append(a.co2, c.Impact.CO2KgYr)
		a.storm = append(a.storm, c.Impact.StormwaterPct)
		a.trees = append(a.trees, float64(c.Impact.TreeCount))
	}

	sort.Slice(order, func(i, j int) bool {
		gi, gj := groups[order[i]].sum.Rank, groups[order[j]].sum.Rank
		if gi != gj {
			return gi < gj
		}
		return order[i] < order[j]
	})

	out := make([]model.InterventionSummary, 0, len(order))
	for _, cat := range order {
		a := groups[cat]
		floats.Scale(1/float64(a.sum.Count), a.benefits[:])
		a.sum.MeanBenefits = a.benefits
		a.sum.MeanImpact = model.ImpactMeans{
			CoolingC:      stat.Mean(a.cooling, nil),
			PM25KgYr:      stat.Mean(a.pm25, nil),
			CO2KgYr:       stat.Mean(a.co2, nil),
			StormwaterPct: stat.Mean(a.storm, nil),
			TreeCount:     stat.Mean(a.trees, nil),
		}
		out = append(out, a.sum)
	}
	return out
}
