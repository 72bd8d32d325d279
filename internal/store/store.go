// Package store persists planning runs and their cells.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/morphology"
	"github.com/sells-group/nbs-planner/internal/pipeline"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// Run is a persisted plan without its cells.
type Run struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	CreatedAt time.Time                   `json:"created_at"`
	Rows      int                         `json:"rows"`
	Cols      int                         `json:"cols"`
	CellSizeM float64                     `json:"cell_size_m"`
	WindDeg   *float64                    `json:"wind_direction_deg,omitempty"`
	Budget    *float64                    `json:"budget,omitempty"`
	Stats     pipeline.RunStats           `json:"stats"`
	Buildings morphology.BuildingStats    `json:"building_stats"`
	Summaries []model.InterventionSummary `json:"summaries"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Name   string `json:"name,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// CellFilter narrows ListCells.
type CellFilter struct {
	Category     *model.Category `json:"category,omitempty"`
	SelectedOnly bool            `json:"selected_only,omitempty"`
}

// Store defines the persistence interface for planning runs.
type Store interface {
	SavePlan(ctx context.Context, name string, plan *pipeline.Plan) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListCells(ctx context.Context, runID string, filter CellFilter) ([]model.GridCell, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NewRun builds the run record of a plan.
func NewRun(id, name string, createdAt time.Time, plan *pipeline.Plan) *Run {
	return &Run{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		Rows:      plan.Rows,
		Cols:      plan.Cols,
		CellSizeM: plan.CellSizeM,
		WindDeg:   plan.WindDeg,
		Budget:    plan.Selection.Budget,
		Stats:     plan.Stats,
		Buildings: plan.Buildings,
		Summaries: plan.Summaries,
	}
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
