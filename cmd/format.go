package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/nbs-planner/internal/cost"
	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/store"
)

// printer groups thousands in costs and areas.
var printer = message.NewPrinter(language.English)

// formatSummaries writes one row per intervention category.
func formatSummaries(out io.Writer, summaries []model.InterventionSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tCATEGORY\tCELLS\tAREA_HA\tCOST\tSCORE\tCOOLING_C\tTREES\tSELECTED")
	_, _ = fmt.Fprintln(w, "----\t--------\t-----\t-------\t----\t-----\t---------\t-----\t--------")
	for _, s := range summaries {
		_, _ = printer.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.0f\t%.1f\t%.2f\t%d\t%d\n",
			s.Rank,
			s.Category,
			s.Count,
			s.TotalArea/nbs.SqMPerHectare,
			s.TotalCost,
			s.MeanBenefits.Mean()*nbs.ScorePerBenefit,
			s.MeanImpact.CoolingC,
			s.TotalTrees,
			s.SelectedCount,
		)
	}
	_ = w.Flush()
}

// formatStats writes the headline numbers of a plan.
func formatStats(out io.Writer, s pipeline.RunStats, budget *float64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = printer.Fprintf(w, "Cells:\t%d (%d with interventions, %.1f%%)\n", s.TotalCells, s.InterventionCells, s.CoveragePct)
	_, _ = printer.Fprintf(w, "Study area:\t%.2f ha\n", s.StudyAreaHa)
	_, _ = printer.Fprintf(w, "Intervention area:\t%.2f ha\n", s.InterventionAreaHa)
	_, _ = printer.Fprintf(w, "Total cost:\t%.0f\n", s.TotalCost)
	_, _ = printer.Fprintf(w, "Cost per ha:\t%.0f\n", s.CostPerHa)
	_, _ = printer.Fprintf(w, "Mean density:\t%.3f\n", s.MeanDensity)
	_, _ = printer.Fprintf(w, "Mean height:\t%.1f m\n", s.MeanHeight)
	_, _ = printer.Fprintf(w, "Mean roughness:\t%.2f m\n", s.MeanRoughness)
	_, _ = printer.Fprintf(w, "Mean sky view:\t%.3f\n", s.MeanSkyViewFactor)
	if budget != nil {
		_, _ = printer.Fprintf(w, "Budget:\t%.0f (%d cells, %.0f spent)\n", *budget, s.SelectedCells, s.SelectedCost)
	}
	if s.DiscardedGeometries > 0 {
		_, _ = printer.Fprintf(w, "Discarded geometries:\t%d\n", s.DiscardedGeometries)
	}
	_ = w.Flush()
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tGRID\tCELL_M\tINTERVENTIONS\tTOTAL_COST\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t-------------\t----------\t-------")

	for _, r := range runs {
		name := r.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = printer.Fprintf(w, "%s\t%s\t%dx%d\t%.0f\t%d\t%.0f\t%s\n",
			truncateID(r.ID),
			name,
			r.Rows, r.Cols,
			r.CellSizeM,
			r.Stats.InterventionCells,
			r.Stats.TotalCost,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatTable writes the coefficient table.
func formatTable(out io.Writer, t nbs.Table) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tCATEGORY\tBENEFITS\tCOOLING_C\tSTORMWATER_%\tTREES_HA\tUNIT_COST")
	_, _ = fmt.Fprintln(w, "----\t--------\t--------\t---------\t------------\t--------\t---------")
	for _, cat := range t.Categories() {
		p := t[cat]
		_, _ = printer.Fprintf(w, "%d\t%s\t%v\t%.1f\t%.0f\t%.0f\t%s\n",
			p.Rank,
			cat,
			p.Benefits,
			p.CoolingC,
			p.StormwaterPct,
			p.TreesPerHectare,
			unitCost(p),
		)
	}
	_ = w.Flush()
}

func unitCost(p nbs.Profile) string {
	if p.Cost.Basis == cost.PerTree {
		return printer.Sprintf("%.0f / tree", p.Cost.PerTree)
	}
	return printer.Sprintf("%.0f / m²", p.Cost.PerSqM)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
