// Package pipeline runs the full planning batch: sanitize, grid, per-cell
// morphology and decision, then prioritization and summary.
package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/nbs-planner/internal/cost"
	"github.com/sells-group/nbs-planner/internal/greenblue"
	"github.com/sells-group/nbs-planner/internal/grid"
	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/morphology"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/priority"
	"github.com/sells-group/nbs-planner/internal/spatial"
	"github.com/sells-group/nbs-planner/internal/wind"
)

// Input is everything one planning batch needs.
type Input struct {
	Buildings []model.Building
	GreenBlue []model.GreenBlue

	// StudyArea overrides the building extent when set.
	StudyArea *orb.Bound
	CellSizeM float64

	// WindDeg takes precedence over WindObservations.
	WindDeg          *float64
	WindObservations []wind.Observation

	CorridorAxes map[model.CellID]float64
	NearWater    map[model.CellID]bool
	Population   map[model.CellID]float64
	Budget       *float64
}

// Plan is the result of one batch.
type Plan struct {
	Rows      int                         `json:"rows"`
	Cols      int                         `json:"cols"`
	CellSizeM float64                     `json:"cell_size_m"`
	Origin    orb.Point                   `json:"origin"`
	Extent    model.BBox                  `json:"extent"`
	WindDeg   *float64                    `json:"wind_direction_deg,omitempty"`
	Cells     []model.GridCell            `json:"cells"`
	Summaries []model.InterventionSummary `json:"summaries"`
	Stats     RunStats                    `json:"stats"`
	Buildings morphology.BuildingStats    `json:"building_stats"`
	Selection priority.Selection          `json:"selection"`
}

// Planner holds the fixed tables shared by every batch.
type Planner struct {
	table        nbs.Table
	costs        *cost.Calculator
	workers      int
	waterBufferM float64
	maxCells     int
}

// Option configures a Planner.
type Option func(*Planner)

// WithTable replaces the default coefficient table.
func WithTable(t nbs.Table) Option {
	return func(p *Planner) {
		p.table = t
		p.costs = cost.NewCalculator(t.Rates())
	}
}

// WithWorkers bounds the per-cell fan-out. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Planner) { p.workers = n }
}

// WithWaterBuffer sets how close water must be for a cell to count as near
// water.
func WithWaterBuffer(m float64) Option {
	return func(p *Planner) { p.waterBufferM = m }
}

// WithMaxCells caps the lattice size. Values below 1 use grid.DefaultMaxCells.
func WithMaxCells(n int) Option {
	return func(p *Planner) { p.maxCells = n }
}

// New creates a Planner with the default table.
func New(opts ...Option) *Planner {
	t := nbs.DefaultTable()
	p := &Planner{
		table: t,
		costs: cost.NewCalculator(t.Rates()),
	}
	for _, o := range opts {
		o(p)
	}
	if p.workers < 1 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// Table returns the coefficient table in use.
func (p *Planner) Table() nbs.Table {
	return p.table
}

// Run executes one batch. The input slices are not modified. Cancelling ctx
// abandons the batch and no partial plan is returned.
func (p *Planner) Run(ctx context.Context, in Input) (*Plan, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"))

	buildings := spatial.SanitizeBuildings(in.Buildings)
	areas, discardedGB := spatial.SanitizeGreenBlue(in.GreenBlue)

	extent, err := studyExtent(in.StudyArea, buildings.Footprints)
	if err != nil {
		return nil, err
	}
	g, err := grid.BuildLimited(extent, in.CellSizeM, p.maxCells)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: grid built",
		zap.Int("rows", g.Rows),
		zap.Int("cols", g.Cols),
		zap.Int("buildings", len(buildings.Footprints)),
		zap.Int("discarded_buildings", buildings.Discarded),
		zap.Int("green_blue", len(areas)),
		zap.Int("discarded_green_blue", discardedGB),
	)

	applyContext(g, in)

	windDeg := in.WindDeg
	if windDeg == nil && len(in.WindObservations) > 0 {
		deg, n := wind.Prevailing(in.WindObservations)
		windDeg = &deg
		log.Info("pipeline: prevailing wind", zap.Float64("direction_deg", deg), zap.Int("samples", n))
	}

	fpBounds := make([]orb.Bound, len(buildings.Footprints))
	for i := range buildings.Footprints {
		fpBounds[i] = buildings.Footprints[i].Bound
	}
	bix := grid.NewBucketIndex(g, fpBounds)
	gix := grid.NewBucketIndex(g, greenblue.IndexBounds(areas, p.waterBufferM))

	cellStart := time.Now()
	if err := p.evaluate(ctx, g, func(c *model.GridCell) error {
		morphology.Compute(c, buildings.Footprints, bix.Candidates(c.Index))
		greenblue.Tag(c, areas, gix.Candidates(c.Index), p.waterBufferM)

		nctx := nbs.Context{WindDeg: windDeg}
		if axis, ok := in.CorridorAxes[c.ID]; ok {
			nctx.CorridorAxisDeg = &axis
		}
		nbs.Classify(c, nctx)

		if err := p.table.Quantify(c); err != nil {
			return eris.Wrapf(err, "pipeline: quantify cell %s", c.ID)
		}
		price, err := p.costs.Estimate(c.Category, c.Area, c.Impact.TreeCount)
		if err != nil {
			return eris.Wrapf(err, "pipeline: cost cell %s", c.ID)
		}
		c.Cost = price
		return nil
	}); err != nil {
		return nil, err
	}
	log.Debug("pipeline: cells evaluated", zap.Duration("elapsed", time.Since(cellStart)))

	sel := priority.Prioritize(g.Cells, p.table.Rank, in.Budget)
	summaries := Summarize(g.Cells, p.table.Rank)

	plan := &Plan{
		Rows:      g.Rows,
		Cols:      g.Cols,
		CellSizeM: g.CellSize,
		Origin:    g.Origin,
		Extent:    model.BBoxOf(g.Extent()),
		WindDeg:   windDeg,
		Cells:     g.Cells,
		Summaries: summaries,
		Buildings: morphology.Stats(buildings.Footprints),
		Selection: sel,
	}
	plan.Stats = ComputeStats(g.Cells, sel, buildings.Discarded+discardedGB)

	counts := make([]zap.Field, 0, len(summaries)+1)
	for _, s := range summaries {
		counts = append(counts, zap.Int(s.Category.Slug(), s.Count))
	}
	counts = append(counts, zap.Duration("elapsed", time.Since(start)))
	log.Info("pipeline: plan complete", counts...)

	return plan, nil
}

// evaluate applies fn to every cell in parallel. Cells are split into
// contiguous chunks so each goroutine owns a disjoint range.
func (p *Planner) evaluate(ctx context.Context, g *grid.Grid, fn func(*model.GridCell) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)

	n := len(g.Cells)
	chunk := (n + p.workers - 1) / p.workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := egCtx.Err(); err != nil {
					return err
				}
				if err := fn(&g.Cells[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func studyExtent(area *orb.Bound, footprints []spatial.Footprint) (orb.Bound, error) {
	if area != nil {
		return *area, nil
	}
	bounds := make([]orb.Bound, len(footprints))
	for i := range footprints {
		bounds[i] = footprints[i].Bound
	}
	ext, ok := grid.Union(bounds...)
	if !ok {
		return orb.Bound{}, &grid.InvalidExtentError{Reason: "no study area and no polygon buildings"}
	}
	return ext, nil
}

func applyContext(g *grid.Grid, in Input) {
	for id, near := range in.NearWater {
		if c := g.Cell(id); c != nil {
			c.NearWater = near
		}
	}
	for id, w := range in.Population {
		if c := g.Cell(id); c != nil {
			c.PopulationWeight = &w
		}
	}
}
