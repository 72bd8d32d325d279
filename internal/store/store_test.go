package store

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/priority"
)

func samplePlan() *pipeline.Plan {
	budget := 5000.0
	wind := 270.0
	cells := []model.GridCell{
		{
			ID:       model.CellID{Row: 0, Col: 0},
			Index:    0,
			Bound:    orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}},
			Area:     10000,
			Metrics:  model.Metrics{Density: 0.75, MeanBuildingHeight: 12, RoughnessLength: 4.5},
			Category: model.CategoryGreenRoof,
			Cost:     1500,
			Priority: 10.5,
			Rank:     1,
			Selected: true,
		},
		{
			ID:       model.CellID{Row: 0, Col: 1},
			Index:    1,
			Bound:    orb.Bound{Min: orb.Point{100, 0}, Max: orb.Point{200, 100}},
			Area:     10000,
			Category: model.CategoryNone,
		},
	}
	return &pipeline.Plan{
		Rows:      1,
		Cols:      2,
		CellSizeM: 100,
		WindDeg:   &wind,
		Cells:     cells,
		Summaries: []model.InterventionSummary{
			{Category: model.CategoryGreenRoof, Rank: 1, Count: 1, TotalArea: 10000, TotalCost: 1500},
		},
		Stats: pipeline.RunStats{TotalCells: 2, InterventionCells: 1, TotalCost: 1500},
		Selection: priority.Selection{
			Candidates:    1,
			SelectedCount: 1,
			SelectedCost:  1500,
			Budget:        &budget,
		},
	}
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	plan := samplePlan()
	r := NewRun("id-1", "downtown", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), plan)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, 1, r.Rows)
	assert.Equal(t, 2, r.Cols)
	require.NotNil(t, r.Budget)
	assert.InDelta(t, 5000, *r.Budget, 1e-9)
	assert.Len(t, r.Summaries, 1)
}

func TestCellRowRoundTrip(t *testing.T) {
	t.Parallel()

	plan := samplePlan()
	row, err := cellRow("run-1", &plan.Cells[0])
	require.NoError(t, err)
	require.Len(t, row, len(cellColumns))
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, "green_roof", row[3])

	geomWKB, ok := row[12].([]byte)
	require.True(t, ok)
	data, ok := row[13].(string)
	require.True(t, ok)

	c, err := decodeCell([]byte(data), geomWKB)
	require.NoError(t, err)
	assert.Equal(t, plan.Cells[0].ID, c.ID)
	assert.Equal(t, plan.Cells[0].Bound, c.Bound)
	assert.Equal(t, model.CategoryGreenRoof, c.Category)
	assert.True(t, c.Selected)
}

func TestDecodeCell_BadGeometry(t *testing.T) {
	t.Parallel()

	_, err := decodeCell([]byte(`{"cell_id":{"row":0,"col":0}}`), []byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cell")
}

func TestListLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultListLimit, listLimit(0))
	assert.Equal(t, defaultListLimit, listLimit(-3))
	assert.Equal(t, 7, listLimit(7))
}
