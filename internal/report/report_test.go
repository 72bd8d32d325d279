package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/pipeline"
)

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
}

func ptr[T any](v T) *T { return &v }

func testPlan(t *testing.T) *pipeline.Plan {
	t.Helper()
	plan, err := pipeline.New().Run(context.Background(), pipeline.Input{
		Buildings: []model.Building{
			{Geometry: square(0, 0, 100, 80), Height: ptr(20.0)},
			{Geometry: square(100, 0, 200, 10), Height: ptr(3.0)},
		},
		GreenBlue:  []model.GreenBlue{{Geometry: square(10, 110, 20, 120)}},
		StudyArea:  &orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{200, 200}},
		CellSizeM:  100,
		Population: map[model.CellID]float64{{Row: 0, Col: 0}: 12},
	})
	require.NoError(t, err)
	return plan
}

func TestWriteCellsCSV(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCellsCSV(&buf, plan.Cells))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "cell_id,row,col,geometry_wkt,density,"))
	assert.True(t, strings.HasSuffix(lines[0], ",cost,composite_priority,rank,selected"))

	var rows []CellRecord
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, "r0_c0", rows[0].CellID)
	assert.Equal(t, model.CategoryGreenRoof.String(), rows[0].Category)
	assert.InDelta(t, 0.8, rows[0].Density, 1e-9)
	require.NotNil(t, rows[0].PopulationWeight)
	assert.Nil(t, rows[1].PopulationWeight)
	assert.Equal(t, "POLYGON ((0 0, 100 0, 100 100, 0 100, 0 0))", rows[0].Geometry)
	assert.Equal(t, "None", rows[2].Category)
}

func TestWriteSummaryCSV(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, plan.Summaries))

	var rows []SummaryRecord
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, len(plan.Summaries))
	assert.Equal(t, "Green Roof", rows[0].Category)
	assert.Equal(t, 1, rows[0].BasePriority)
	assert.InDelta(t, plan.Summaries[0].TotalCost, rows[0].TotalCost, 1e-6)
}

func TestRecordValuesMatchHeader(t *testing.T) {
	t.Parallel()

	cellHeader, err := csvutil.Header(CellRecord{}, "csv")
	require.NoError(t, err)
	assert.Len(t, CellRecord{}.values(), len(cellHeader))

	summaryHeader, err := csvutil.Header(SummaryRecord{}, "csv")
	require.NoError(t, err)
	assert.Len(t, SummaryRecord{}.values(), len(summaryHeader))
}

func TestWriteGeoJSON(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, plan.Cells))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Geometry   map[string]any `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 4)

	f := doc.Features[0]
	assert.Equal(t, "r0_c0", f.ID)
	assert.Equal(t, "Polygon", f.Geometry["type"])
	assert.Equal(t, "Green Roof", f.Properties["proposed_category"])
	assert.NotContains(t, f.Properties, "geometry_wkt")
	assert.Contains(t, f.Properties, "benefit_water_management")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, plan))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, k := range []string{"rows", "cols", "origin", "extent", "cells", "summaries", "stats", "building_stats", "selection"} {
		assert.Contains(t, doc, k)
	}
}

func TestWriteJSON_CellGeometryRoundTrip(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, plan))

	var back pipeline.Plan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, orb.Point{0, 0}, back.Origin)
	assert.Equal(t, model.BBox{0, 0, 200, 200}, back.Extent)
	require.Len(t, back.Cells, len(plan.Cells))
	for i := range plan.Cells {
		assert.Equal(t, plan.Cells[i].ID, back.Cells[i].ID)
		assert.Equal(t, plan.Cells[i].Bound, back.Cells[i].Bound, plan.Cells[i].ID.String())
		assert.InDelta(t, plan.Cells[i].Cost, back.Cells[i].Cost, 1e-9)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()
	plan := testPlan(t)
	dir := filepath.Join(t.TempDir(), "out")

	files, err := Export(dir, Formats, plan)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "plan.json"),
		filepath.Join(dir, "cells.csv"),
		filepath.Join(dir, "summary.csv"),
		filepath.Join(dir, "cells.geojson"),
		filepath.Join(dir, "plan.xlsx"),
	}, files)

	wb, err := xlsx.OpenFile(filepath.Join(dir, "plan.xlsx"))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 3)
	assert.Equal(t, "Summary", wb.Sheets[0].Name)
	assert.Len(t, wb.Sheets[0].Rows, 1+len(plan.Summaries))
	assert.Equal(t, "Cells", wb.Sheets[2].Name)
	assert.Len(t, wb.Sheets[2].Rows, 1+len(plan.Cells))
	assert.Equal(t, "cell_id", wb.Sheets[2].Rows[0].Cells[0].String())
	assert.Equal(t, "r0_c0", wb.Sheets[2].Rows[1].Cells[0].String())
}

func TestExport_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Export(t.TempDir(), []string{"shp"}, testPlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.False(t, ValidFormat("shp"))
	assert.True(t, ValidFormat(FormatXLSX))
}
