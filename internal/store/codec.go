package store

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/nbs-planner/internal/model"
)

// runDetail is the JSON column of a run: everything not queried directly.
type runDetail struct {
	WindDeg   *float64                    `json:"wind_direction_deg,omitempty"`
	Stats     json.RawMessage             `json:"stats"`
	Buildings json.RawMessage             `json:"building_stats"`
	Summaries []model.InterventionSummary `json:"summaries"`
}

func encodeRunDetail(r *Run) ([]byte, error) {
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal stats")
	}
	buildings, err := json.Marshal(r.Buildings)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal building stats")
	}
	data, err := json.Marshal(runDetail{
		WindDeg:   r.WindDeg,
		Stats:     stats,
		Buildings: buildings,
		Summaries: r.Summaries,
	})
	return data, eris.Wrap(err, "store: marshal run detail")
}

func decodeRunDetail(data []byte, r *Run) error {
	var d runDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return eris.Wrap(err, "store: unmarshal run detail")
	}
	r.WindDeg = d.WindDeg
	r.Summaries = d.Summaries
	if err := json.Unmarshal(d.Stats, &r.Stats); err != nil {
		return eris.Wrap(err, "store: unmarshal stats")
	}
	if err := json.Unmarshal(d.Buildings, &r.Buildings); err != nil {
		return eris.Wrap(err, "store: unmarshal building stats")
	}
	return nil
}

// cellColumns is the column order shared by both stores.
var cellColumns = []string{
	"run_id", "cell_row", "cell_col", "category", "density", "roughness_length",
	"mean_building_height", "sky_view_factor", "cost", "composite_priority",
	"cell_rank", "selected", "geom", "data",
}

// cellRow flattens a cell into cellColumns order. The geometry is stored as
// WKB so it can be read back without the JSON body.
func cellRow(runID string, c *model.GridCell) ([]any, error) {
	geomWKB, err := wkb.Marshal(c.Geometry(), wkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "store: encode cell %s geometry", c.ID)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal cell %s", c.ID)
	}
	return []any{
		runID, c.ID.Row, c.ID.Col, c.Category.Slug(),
		c.Metrics.Density, c.Metrics.RoughnessLength,
		c.Metrics.MeanBuildingHeight, c.Metrics.SkyViewFactor,
		c.Cost, c.Priority, c.Rank, c.Selected,
		geomWKB, string(data),
	}, nil
}

// decodeCell restores a cell from its JSON body and WKB geometry.
func decodeCell(data, geomWKB []byte) (model.GridCell, error) {
	var c model.GridCell
	if err := json.Unmarshal(data, &c); err != nil {
		return c, eris.Wrap(err, "store: unmarshal cell")
	}
	g, err := wkb.Unmarshal(geomWKB)
	if err != nil {
		return c, eris.Wrapf(err, "store: decode cell %s geometry", c.ID)
	}
	b := g.Bounds()
	c.Bound = orb.Bound{
		Min: orb.Point{b.Min(0), b.Min(1)},
		Max: orb.Point{b.Max(0), b.Max(1)},
	}
	return c, nil
}
