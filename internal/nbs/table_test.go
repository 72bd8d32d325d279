package nbs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nbs-planner/internal/cost"
	"github.com/sells-group/nbs-planner/internal/model"
)

func TestDefaultTable(t *testing.T) {
	t.Parallel()
	tbl := DefaultTable()

	assert.Equal(t, []model.Category{
		model.CategoryGreenRoof,
		model.CategoryUrbanForest,
		model.CategoryVentilationCorridor,
		model.CategoryPermeablePavement,
		model.CategoryWetlandRestoration,
		model.CategoryRainGarden,
	}, tbl.Categories())

	for _, cat := range tbl.Categories() {
		p, err := tbl.Profile(cat)
		require.NoError(t, err)
		for _, s := range p.Benefits {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 5.0)
		}
	}

	assert.Equal(t, NoneRank, tbl.Rank(model.CategoryNone))
	assert.Equal(t, 1, tbl.Rank(model.CategoryGreenRoof))
	assert.Len(t, tbl.Rates(), 6)
}

func TestTable_UnknownCategory(t *testing.T) {
	t.Parallel()
	tbl := Table{model.CategoryGreenRoof: {Rank: 1}}

	_, err := tbl.Profile(model.CategoryRainGarden)
	var target *model.UnknownCategoryError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, NoneRank, tbl.Rank(model.CategoryRainGarden))

	c := model.GridCell{Category: model.CategoryUrbanForest, Area: 100}
	require.ErrorAs(t, tbl.Quantify(&c), &target)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
interventions:
  green_roof:
    cooling_c: 4.0
    cost:
      basis: area
      per_sqm: 175
  Urban Forest:
    trees_per_hectare: 120
    benefits: [5, 5, 5, 3, 5, 4]
`)

	tbl, err := LoadTable(path)
	require.NoError(t, err)

	gr := tbl[model.CategoryGreenRoof]
	assert.InDelta(t, 4.0, gr.CoolingC, 1e-9)
	assert.Equal(t, cost.Rate{Basis: cost.PerArea, PerSqM: 175}, gr.Cost)
	assert.InDelta(t, 60, gr.StormwaterPct, 1e-9)
	assert.Equal(t, 1, gr.Rank)

	uf := tbl[model.CategoryUrbanForest]
	assert.InDelta(t, 120, uf.TreesPerHectare, 1e-9)
	assert.Equal(t, model.BenefitVector{5, 5, 5, 3, 5, 4}, uf.Benefits)
	assert.Equal(t, DefaultTable()[model.CategoryRainGarden], tbl[model.CategoryRainGarden])
}

func TestLoadTable_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"unknown category", "interventions:\n  sponge_city:\n    rank: 7\n", "unknown intervention category"},
		{"none", "interventions:\n  none:\n    rank: 1\n", "None has no coefficients"},
		{"short benefits", "interventions:\n  rain_garden:\n    benefits: [1, 2]\n", "benefits needs 6 scores"},
		{"benefit out of range", "interventions:\n  rain_garden:\n    benefits: [1, 2, 3, 4, 5, 6]\n", "outside 0..5"},
		{"bad basis", "interventions:\n  rain_garden:\n    cost:\n      basis: volume\n", "unknown cost basis"},
		{"bad yaml", "interventions: [", "nbs: parse table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadTable(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nbs: read table")
}

func TestOverrideOf_RoundTrip(t *testing.T) {
	t.Parallel()

	def := DefaultTable()
	p := def[model.CategoryUrbanForest]
	p.Rank = 9
	p.Benefits[0] = 1

	got, err := OverrideOf(p).apply(Profile{})
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// the override must not alias the source benefits
	o := OverrideOf(p)
	o.Benefits[1] = 0
	assert.InDelta(t, def[model.CategoryUrbanForest].Benefits[1], p.Benefits[1], 1e-12)
}
