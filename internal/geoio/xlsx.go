package geoio

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadCellContextXLSX reads per-cell context from a workbook laid out like
// the context CSV: a header row, then one row per cell. sheet selects a
// sheet by name; empty means the first sheet.
func ReadCellContextXLSX(path, sheet string) (*CellContext, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open workbook %s", path)
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	width := 0
	for i, row := range s.Rows {
		cells := rowStrings(row)
		if i == 0 {
			width = len(cells)
		}
		// Sheets drop trailing empty cells; the CSV decoder wants full rows.
		for len(cells) < width {
			cells = append(cells, "")
		}
		if err := w.Write(cells); err != nil {
			return nil, eris.Wrap(err, "geoio: convert sheet row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "geoio: convert sheet")
	}
	return DecodeCellContext(&buf)
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("geoio: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("geoio: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}
