// Package grid partitions a study area into a regular lattice of square cells.
package grid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/model"
)

// DefaultCellSizeM is the cell side length used when none is configured.
const DefaultCellSizeM = 150.0

// DefaultMaxCells caps the lattice size when no limit is configured.
const DefaultMaxCells = 4_000_000

// ceilTolerance absorbs floating error when the extent is an exact multiple
// of the cell size.
const ceilTolerance = 1e-9

// InvalidExtentError is returned when no grid can be built. No partial grid
// is produced alongside it.
type InvalidExtentError struct {
	Bound  orb.Bound
	Reason string
}

func (e *InvalidExtentError) Error() string {
	return fmt.Sprintf("grid: invalid extent [%g %g %g %g]: %s",
		e.Bound.Min.X(), e.Bound.Min.Y(), e.Bound.Max.X(), e.Bound.Max.Y(), e.Reason)
}

// Grid is the lattice plus its cells, ordered row-major from the south-west
// corner.
type Grid struct {
	Origin   orb.Point
	CellSize float64
	Rows     int
	Cols     int
	Cells    []model.GridCell
}

// Build tiles extent with cellSize squares, capped at DefaultMaxCells.
func Build(extent orb.Bound, cellSize float64) (*Grid, error) {
	return BuildLimited(extent, cellSize, DefaultMaxCells)
}

// BuildLimited tiles extent with cellSize squares. Cells on the east and north
// edges keep their full size and may extend past the extent. A zero-width or
// zero-height extent yields a single row or column. A lattice of more than
// maxCells cells is rejected; maxCells below 1 means DefaultMaxCells.
func BuildLimited(extent orb.Bound, cellSize float64, maxCells int) (*Grid, error) {
	if maxCells < 1 {
		maxCells = DefaultMaxCells
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, &InvalidExtentError{Bound: extent, Reason: fmt.Sprintf("cell size %g must be positive", cellSize)}
	}
	for _, v := range []float64{extent.Min.X(), extent.Min.Y(), extent.Max.X(), extent.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidExtentError{Bound: extent, Reason: "non-finite coordinate"}
		}
	}
	if extent.Max.X() < extent.Min.X() || extent.Max.Y() < extent.Min.Y() {
		return nil, &InvalidExtentError{Bound: extent, Reason: "max is below min"}
	}

	fcols := spanCount(extent.Max.X()-extent.Min.X(), cellSize)
	frows := spanCount(extent.Max.Y()-extent.Min.Y(), cellSize)
	if math.IsInf(fcols, 0) || math.IsInf(frows, 0) || math.IsNaN(fcols) || math.IsNaN(frows) {
		return nil, &InvalidExtentError{Bound: extent, Reason: fmt.Sprintf("cell size %g gives a non-finite cell count", cellSize)}
	}
	if total := fcols * frows; total > float64(maxCells) {
		return nil, &InvalidExtentError{
			Bound:  extent,
			Reason: fmt.Sprintf("%.0f×%.0f cells exceeds the limit of %d", frows, fcols, maxCells),
		}
	}
	cols, rows := int(fcols), int(frows)

	g := &Grid{
		Origin:   extent.Min,
		CellSize: cellSize,
		Rows:     rows,
		Cols:     cols,
		Cells:    make([]model.GridCell, 0, rows*cols),
	}
	area := cellSize * cellSize
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Cells = append(g.Cells, model.GridCell{
				ID:    model.CellID{Row: r, Col: c},
				Index: r*cols + c,
				Bound: g.cellBound(r, c),
				Area:  area,
			})
		}
	}

	zap.L().Debug("grid: built lattice",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Float64("cell_size_m", cellSize),
	)
	return g, nil
}

// spanCount is kept in float so oversized counts are caught before any
// integer conversion.
func spanCount(length, cellSize float64) float64 {
	return math.Max(math.Ceil(length/cellSize-ceilTolerance), 1)
}

func (g *Grid) cellBound(row, col int) orb.Bound {
	minX := g.Origin.X() + float64(col)*g.CellSize
	minY := g.Origin.Y() + float64(row)*g.CellSize
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{minX + g.CellSize, minY + g.CellSize},
	}
}

// Extent is the area covered by all cells.
func (g *Grid) Extent() orb.Bound {
	return orb.Bound{
		Min: g.Origin,
		Max: orb.Point{
			g.Origin.X() + float64(g.Cols)*g.CellSize,
			g.Origin.Y() + float64(g.Rows)*g.CellSize,
		},
	}
}

// Cell returns the cell at id, or nil if it lies outside the lattice.
func (g *Grid) Cell(id model.CellID) *model.GridCell {
	if id.Row < 0 || id.Row >= g.Rows || id.Col < 0 || id.Col >= g.Cols {
		return nil
	}
	return &g.Cells[id.Row*g.Cols+id.Col]
}

// Span returns the inclusive row and column range of cells that b touches.
// ok is false when b lies entirely outside the lattice.
func (g *Grid) Span(b orb.Bound) (r0, r1, c0, c1 int, ok bool) {
	ext := g.Extent()
	if !ext.Intersects(b) {
		return 0, 0, 0, 0, false
	}
	c0 = clampIndex(int(math.Floor((b.Min.X()-g.Origin.X())/g.CellSize)), g.Cols)
	c1 = clampIndex(int(math.Floor((b.Max.X()-g.Origin.X())/g.CellSize)), g.Cols)
	r0 = clampIndex(int(math.Floor((b.Min.Y()-g.Origin.Y())/g.CellSize)), g.Rows)
	r1 = clampIndex(int(math.Floor((b.Max.Y()-g.Origin.Y())/g.CellSize)), g.Rows)
	return r0, r1, c0, c1, true
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
