// Package priority ranks intervention cells and selects them under an
// optional budget.
package priority

import (
	"math"
	"sort"

	"github.com/sells-group/nbs-planner/internal/model"
)

// Component weights of the composite priority.
const (
	RankBase         = 10.0
	ScoreDivisor     = 10.0
	CostWeight       = 5.0
	PopulationWeight = 5.0
)

// RankFunc returns the base rank of a category, 1 being the most urgent.
type RankFunc func(model.Category) int

// Selection summarizes a prioritization run.
type Selection struct {
	Order         []int    `json:"-"`
	Candidates    int      `json:"candidates"`
	SelectedCount int      `json:"selected_count"`
	SelectedCost  float64  `json:"selected_cost"`
	DeferredCount int      `json:"deferred_count"`
	Budget        *float64 `json:"budget,omitempty"`
}

// Composite scores one cell. normCost and normPop are in [0, 1].
func Composite(baseRank int, overallScore, normCost, normPop float64) float64 {
	return (RankBase - float64(baseRank)) +
		overallScore/ScoreDivisor +
		(1-normCost)*CostWeight +
		normPop*PopulationWeight
}

// Prioritize scores every non-None cell, orders them by descending priority
// with ties broken by ascending cell id, and marks the selected set. Without
// a budget every candidate is selected. With one, cells are taken greedily
// in priority order while the running total stays within budget; the first
// cell that would exceed it and every cell after it are deferred.
func Prioritize(cells []model.GridCell, rank RankFunc, budget *float64) Selection {
	var maxCost, maxPop float64
	order := make([]int, 0, len(cells))
	for i := range cells {
		c := &cells[i]
		c.Priority, c.Rank, c.Selected = 0, 0, false
		if !c.Intervention() {
			continue
		}
		order = append(order, i)
		maxCost = math.Max(maxCost, c.Cost)
		if c.PopulationWeight != nil {
			maxPop = math.Max(maxPop, *c.PopulationWeight)
		}
	}

	for _, i := range order {
		c := &cells[i]
		var normCost, normPop float64
		if maxCost > 0 {
			normCost = c.Cost / maxCost
		}
		if maxPop > 0 && c.PopulationWeight != nil {
			normPop = *c.PopulationWeight / maxPop
		}
		c.Priority = Composite(rank(c.Category), c.OverallScore, normCost, normPop)
	}

	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := &cells[order[a]], &cells[order[b]]
		if ca.Priority != cb.Priority {
			return ca.Priority > cb.Priority
		}
		return ca.ID.Less(cb.ID)
	})

	sel := Selection{Order: order, Candidates: len(order), Budget: budget}
	dense := 0
	prev := math.Inf(1)
	exhausted := false
	for _, i := range order {
		c := &cells[i]
		if c.Priority != prev {
			dense++
			prev = c.Priority
		}
		c.Rank = dense

		if budget != nil && (exhausted || sel.SelectedCost+c.Cost > *budget) {
			exhausted = true
			sel.DeferredCount++
			continue
		}
		c.Selected = true
		sel.SelectedCount++
		sel.SelectedCost += c.Cost
	}
	return sel
}
