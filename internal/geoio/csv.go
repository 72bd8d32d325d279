package geoio

import (
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/wind"
)

// CellContextRow is one line of a per-cell context CSV. Empty columns leave
// the value unset.
type CellContextRow struct {
	Row              int      `csv:"row"`
	Col              int      `csv:"col"`
	PopulationWeight *float64 `csv:"population_weight,omitempty"`
	NearWater        *bool    `csv:"near_water,omitempty"`
	CorridorAxisDeg  *float64 `csv:"corridor_axis_deg,omitempty"`
}

// CellContext is the per-cell optional input keyed by cell id.
type CellContext struct {
	Population   map[model.CellID]float64
	NearWater    map[model.CellID]bool
	CorridorAxes map[model.CellID]float64
}

// DecodeCellContext reads a per-cell context CSV.
func DecodeCellContext(r io.Reader) (*CellContext, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geoio: read cell context")
	}
	var rows []CellContextRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "geoio: decode cell context")
	}

	out := &CellContext{
		Population:   map[model.CellID]float64{},
		NearWater:    map[model.CellID]bool{},
		CorridorAxes: map[model.CellID]float64{},
	}
	for i, row := range rows {
		if row.Row < 0 || row.Col < 0 {
			return nil, eris.Errorf("geoio: cell context line %d: negative cell index", i+2)
		}
		id := model.CellID{Row: row.Row, Col: row.Col}
		if row.PopulationWeight != nil {
			out.Population[id] = *row.PopulationWeight
		}
		if row.NearWater != nil {
			out.NearWater[id] = *row.NearWater
		}
		if row.CorridorAxisDeg != nil {
			out.CorridorAxes[id] = *row.CorridorAxisDeg
		}
	}
	return out, nil
}

// ReadCellContextCSV reads a per-cell context CSV file.
func ReadCellContextCSV(path string) (*CellContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeCellContext(f)
}

// DecodeWind reads hourly wind observations with columns time,
// direction_deg and speed_ms.
func DecodeWind(r io.Reader) ([]wind.Observation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geoio: read wind observations")
	}
	var obs []wind.Observation
	if err := csvutil.Unmarshal(data, &obs); err != nil {
		return nil, eris.Wrap(err, "geoio: decode wind observations")
	}
	return obs, nil
}

// ReadWindCSV reads hourly wind observations from a file.
func ReadWindCSV(path string) ([]wind.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeWind(f)
}
