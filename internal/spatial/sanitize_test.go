package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/nbs-planner/internal/model"
)

func square(x, y, side float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y},
	}})
}

func TestSanitizeBuildings(t *testing.T) {
	t.Parallel()

	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 10)))
	require.NoError(t, mp.Push(square(20, 0, 5)))

	buildings := []model.Building{
		{ID: "poly", Geometry: square(0, 0, 10)},
		{ID: "point", Geometry: geom.NewPointFlat(geom.XY, []float64{1, 1})},
		{ID: "line", Geometry: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 5, 5})},
		{ID: "multi", Geometry: mp},
		{ID: "nil"},
		{ID: "empty", Geometry: geom.NewPolygon(geom.XY)},
	}

	got := SanitizeBuildings(buildings)
	require.Len(t, got.Footprints, 2)
	assert.Equal(t, 4, got.Discarded)

	assert.Equal(t, "poly", got.Footprints[0].Building.ID)
	assert.InDelta(t, 100, got.Footprints[0].Area, 1e-9)
	assert.Equal(t, "multi", got.Footprints[1].Building.ID)
	assert.InDelta(t, 125, got.Footprints[1].Area, 1e-9)
	assert.InDelta(t, 25, got.Footprints[1].Bound.Max.X(), 1e-9)
}

func TestSanitizeBuildings_ReferencesCallerSlice(t *testing.T) {
	t.Parallel()

	buildings := []model.Building{{ID: "a", Geometry: square(0, 0, 1)}}
	got := SanitizeBuildings(buildings)
	require.Len(t, got.Footprints, 1)
	assert.Same(t, &buildings[0], got.Footprints[0].Building)
}

func TestSanitizeGreenBlue_DefaultsKind(t *testing.T) {
	t.Parallel()

	areas, discarded := SanitizeGreenBlue([]model.GreenBlue{
		{ID: "park", Geometry: square(0, 0, 10)},
		{ID: "lake", Kind: model.KindWater, Geometry: square(50, 50, 10)},
		{ID: "tree", Geometry: geom.NewPointFlat(geom.XY, []float64{3, 3})},
	})
	require.Len(t, areas, 2)
	assert.Equal(t, 1, discarded)
	assert.Equal(t, model.KindGreen, areas[0].Kind)
	assert.Equal(t, model.KindWater, areas[1].Kind)
}

func TestToMultiPolygon_HoleReducesArea(t *testing.T) {
	t.Parallel()

	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
	})
	shape, ok := NewShape(p)
	require.True(t, ok)
	assert.InDelta(t, 96, shape.Area, 1e-9)
}
