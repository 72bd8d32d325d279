package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/pipeline"
)

// Export formats.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
	FormatXLSX    = "xlsx"
)

// Formats lists every supported export format.
var Formats = []string{FormatJSON, FormatCSV, FormatGeoJSON, FormatXLSX}

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// CellRecords flattens every cell of a plan in cell order.
func CellRecords(cells []model.GridCell) []CellRecord {
	out := make([]CellRecord, len(cells))
	for i := range cells {
		out[i] = NewCellRecord(&cells[i])
	}
	return out
}

// SummaryRecords flattens the category summaries.
func SummaryRecords(summaries []model.InterventionSummary) []SummaryRecord {
	out := make([]SummaryRecord, len(summaries))
	for i := range summaries {
		out[i] = NewSummaryRecord(&summaries[i])
	}
	return out
}

// WriteJSON writes the full plan.
func WriteJSON(w io.Writer, plan *pipeline.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

// WriteCellsCSV writes one row per cell.
func WriteCellsCSV(w io.Writer, cells []model.GridCell) error {
	return writeCSV(w, CellRecords(cells))
}

// WriteSummaryCSV writes one row per intervention category.
func WriteSummaryCSV(w io.Writer, summaries []model.InterventionSummary) error {
	return writeCSV(w, SummaryRecords(summaries))
}

func writeCSV(w io.Writer, records any) error {
	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "report: encode csv")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "report: write csv")
	}
	return nil
}

// CellFeatures converts cells to a GeoJSON FeatureCollection whose properties
// mirror the CSV columns.
func CellFeatures(cells []model.GridCell) (*geojson.FeatureCollection, error) {
	header, err := csvutil.Header(CellRecord{}, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "report: cell header")
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(cells))}
	for i := range cells {
		rec := NewCellRecord(&cells[i])
		props := make(map[string]any, len(header))
		for j, v := range rec.values() {
			if header[j] == "geometry_wkt" {
				continue
			}
			props[header[j]] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         rec.CellID,
			Geometry:   cells[i].Geometry(),
			Properties: props,
		})
	}
	return fc, nil
}

// WriteGeoJSON writes cells as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, cells []model.GridCell) error {
	fc, err := CellFeatures(cells)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "report: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "report: write geojson")
	}
	return nil
}

// Workbook builds an XLSX file with Summary, Stats and Cells sheets.
func Workbook(plan *pipeline.Plan) (*xlsx.File, error) {
	f := xlsx.NewFile()

	summaryHeader, err := csvutil.Header(SummaryRecord{}, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "report: summary header")
	}
	summary, err := f.AddSheet("Summary")
	if err != nil {
		return nil, eris.Wrap(err, "report: add summary sheet")
	}
	addRow(summary, stringsToAny(summaryHeader))
	for _, r := range SummaryRecords(plan.Summaries) {
		addRow(summary, r.values())
	}

	stats, err := f.AddSheet("Stats")
	if err != nil {
		return nil, eris.Wrap(err, "report: add stats sheet")
	}
	for _, kv := range statRows(plan) {
		addRow(stats, kv)
	}

	cellHeader, err := csvutil.Header(CellRecord{}, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "report: cell header")
	}
	cells, err := f.AddSheet("Cells")
	if err != nil {
		return nil, eris.Wrap(err, "report: add cells sheet")
	}
	addRow(cells, stringsToAny(cellHeader))
	for _, r := range CellRecords(plan.Cells) {
		addRow(cells, r.values())
	}
	return f, nil
}

// WriteXLSX writes the plan workbook.
func WriteXLSX(w io.Writer, plan *pipeline.Plan) error {
	f, err := Workbook(plan)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

func statRows(plan *pipeline.Plan) [][]any {
	s := plan.Stats
	b := plan.Buildings
	return [][]any{
		{"metric", "value"},
		{"rows", plan.Rows},
		{"cols", plan.Cols},
		{"cell_size_m", plan.CellSizeM},
		{"total_cells", s.TotalCells},
		{"intervention_cells", s.InterventionCells},
		{"coverage_pct", s.CoveragePct},
		{"study_area_ha", s.StudyAreaHa},
		{"intervention_area_ha", s.InterventionAreaHa},
		{"total_cost", s.TotalCost},
		{"cost_per_ha", s.CostPerHa},
		{"mean_density", s.MeanDensity},
		{"mean_building_height", s.MeanHeight},
		{"mean_roughness_length", s.MeanRoughness},
		{"mean_sky_view_factor", s.MeanSkyViewFactor},
		{"selected_cells", s.SelectedCells},
		{"selected_cost", s.SelectedCost},
		{"discarded_geometries", s.DiscardedGeometries},
		{"total_buildings", b.Total},
		{"total_footprint_m2", b.TotalFootprint},
		{"mean_footprint_m2", b.MeanFootprint},
		{"median_footprint_m2", b.MedianFootprint},
		{"mean_height_m", b.MeanHeight},
		{"median_height_m", b.MedianHeight},
		{"max_height_m", b.MaxHeight},
	}
}

func addRow(sheet *xlsx.Sheet, values []any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch x := v.(type) {
		case nil:
		case string:
			cell.SetString(x)
		case int:
			cell.SetInt(x)
		case float64:
			cell.SetFloat(x)
		case bool:
			cell.SetBool(x)
		default:
			cell.SetString(fmt.Sprint(x))
		}
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Export writes plan to dir in each format and returns the files written.
// CSV produces both cells.csv and summary.csv.
func Export(dir string, formats []string, plan *pipeline.Plan) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", dir)
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "report: create %s", path)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "report: close %s", path)
		}
		written = append(written, path)
		return nil
	}

	for _, format := range formats {
		var err error
		switch strings.ToLower(format) {
		case FormatJSON:
			err = write("plan.json", func(w io.Writer) error { return WriteJSON(w, plan) })
		case FormatCSV:
			err = write("cells.csv", func(w io.Writer) error { return WriteCellsCSV(w, plan.Cells) })
			if err == nil {
				err = write("summary.csv", func(w io.Writer) error { return WriteSummaryCSV(w, plan.Summaries) })
			}
		case FormatGeoJSON:
			err = write("cells.geojson", func(w io.Writer) error { return WriteGeoJSON(w, plan.Cells) })
		case FormatXLSX:
			err = write("plan.xlsx", func(w io.Writer) error { return WriteXLSX(w, plan) })
		default:
			err = eris.Errorf("report: unknown format %q", format)
		}
		if err != nil {
			return written, err
		}
	}

	zap.L().Info("report: plan exported", zap.String("dir", dir), zap.Strings("files", written))
	return written, nil
}
