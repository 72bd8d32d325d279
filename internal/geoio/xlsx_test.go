package geoio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/nbs-planner/internal/model"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	s, err := f.AddSheet(sheet)
	require.NoError(t, err)
	for _, r := range rows {
		row := s.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "context.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadCellContextXLSX(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "cells", [][]string{
		{"row", "col", "population_weight", "near_water", "corridor_axis_deg"},
		{"0", "0", "40"},
		{"1", "2", "", "true", "45"},
	})

	cc, err := ReadCellContextXLSX(path, "")
	require.NoError(t, err)
	assert.InDelta(t, 40, cc.Population[model.CellID{Row: 0, Col: 0}], 1e-9)
	assert.True(t, cc.NearWater[model.CellID{Row: 1, Col: 2}])
	assert.InDelta(t, 45, cc.CorridorAxes[model.CellID{Row: 1, Col: 2}], 1e-9)
	assert.Len(t, cc.Population, 1)

	cc, err = ReadCellContextXLSX(path, "cells")
	require.NoError(t, err)
	assert.Len(t, cc.NearWater, 1)
}

func TestReadCellContextXLSX_Errors(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "cells", [][]string{{"row", "col"}, {"0", "0"}})

	_, err := ReadCellContextXLSX(path, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "missing" not found`)

	_, err = ReadCellContextXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geoio: open workbook")
}
