package nbs

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/nbs-planner/internal/cost"
	"github.com/sells-group/nbs-planner/internal/model"
)

// NoneRank sorts the None category after every intervention.
const NoneRank = 999

// Profile is the fixed coefficient set of one category.
type Profile struct {
	Rank            int                 `json:"base_priority"`
	Benefits        model.BenefitVector `json:"benefits"`
	CoolingC        float64             `json:"cooling_c"`
	StormwaterPct   float64             `json:"stormwater_pct"`
	TreesPerHectare float64             `json:"trees_per_hectare"`
	VegetatedRoof   bool                `json:"vegetated_roof"`
	Cost            cost.Rate           `json:"cost"`
}

// Table holds one Profile per category.
type Table map[model.Category]Profile

// DefaultTable returns the built-in coefficients.
func DefaultTable() Table {
	rates := cost.DefaultRates()
	return Table{
		model.CategoryNone: {Rank: NoneRank},
		model.CategoryGreenRoof: {
			Rank:          1,
			Benefits:      model.BenefitVector{5, 3, 3, 5, 2, 4},
			CoolingC:      3.5,
			StormwaterPct: 60,
			VegetatedRoof: true,
			Cost:          rates[model.CategoryGreenRoof],
		},
		model.CategoryUrbanForest: {
			Rank:            2,
			Benefits:        model.BenefitVector{4, 5, 5, 3, 5, 4},
			CoolingC:        2.0,
			StormwaterPct:   30,
			TreesPerHectare: 100,
			Cost:            rates[model.CategoryUrbanForest],
		},
		model.CategoryVentilationCorridor: {
			Rank:            3,
			Benefits:        model.BenefitVector{5, 3, 5, 2, 4, 3},
			CoolingC:        2.5,
			TreesPerHectare: 50,
			Cost:            rates[model.CategoryVentilationCorridor],
		},
		model.CategoryPermeablePavement: {
			Rank:          4,
			Benefits:      model.BenefitVector{3, 1, 2, 5, 2, 4},
			CoolingC:      1.5,
			StormwaterPct: 80,
			Cost:          rates[model.CategoryPermeablePavement],
		},
		model.CategoryWetlandRestoration: {
			Rank:          5,
			Benefits:      model.BenefitVector{4, 5, 3, 5, 4, 3},
			CoolingC:      3.0,
			StormwaterPct: 95,
			Cost:          rates[model.CategoryWetlandRestoration],
		},
		model.CategoryRainGarden: {
			Rank:          6,
			Benefits:      model.BenefitVector{4, 4, 3, 5, 4, 4},
			CoolingC:      1.5,
			StormwaterPct: 90,
			Cost:          rates[model.CategoryRainGarden],
		},
	}
}

// Profile returns the coefficients of cat.
func (t Table) Profile(cat model.Category) (Profile, error) {
	p, ok := t[cat]
	if !ok {
		return Profile{}, &model.UnknownCategoryError{Name: cat.String()}
	}
	return p, nil
}

// Rank returns the base rank of cat, or NoneRank when it has no profile.
func (t Table) Rank(cat model.Category) int {
	if p, ok := t[cat]; ok {
		return p.Rank
	}
	return NoneRank
}

// Rates extracts the cost table.
func (t Table) Rates() cost.Rates {
	out := make(cost.Rates, len(t))
	for cat, p := range t {
		if cat == model.CategoryNone {
			continue
		}
		out[cat] = p.Cost
	}
	return out
}

// Categories lists the table's intervention categories by rank.
func (t Table) Categories() []model.Category {
	out := make([]model.Category, 0, len(t))
	for cat := range t {
		if cat != model.CategoryNone {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := t[out[i]].Rank, t[out[j]].Rank
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// ProfileOverride replaces the fields it sets.
type ProfileOverride struct {
	Rank            *int       `yaml:"rank"`
	Benefits        []float64  `yaml:"benefits"`
	CoolingC        *float64   `yaml:"cooling_c"`
	StormwaterPct   *float64   `yaml:"stormwater_pct"`
	TreesPerHectare *float64   `yaml:"trees_per_hectare"`
	VegetatedRoof   *bool      `yaml:"vegetated_roof"`
	Cost            *cost.Rate `yaml:"cost"`
}

// LoadTable reads category overrides from a YAML file and applies them on top
// of DefaultTable. Keys are category names or slugs.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "nbs: read table %s", path)
	}

	var wrapper struct {
		Interventions map[string]ProfileOverride `yaml:"interventions"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "nbs: parse table")
	}

	t := DefaultTable()
	for name, o := range wrapper.Interventions {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, eris.Wrapf(err, "nbs: table entry %q", name)
		}
		if cat == model.CategoryNone {
			return nil, eris.Errorf("nbs: table entry %q: None has no coefficients", name)
		}
		p, err := o.apply(t[cat])
		if err != nil {
			return nil, eris.Wrapf(err, "nbs: table entry %q", name)
		}
		t[cat] = p
	}
	return t, nil
}

// OverrideOf returns an override that sets every field of p.
func OverrideOf(p Profile) ProfileOverride {
	rank := p.Rank
	cooling := p.CoolingC
	storm := p.StormwaterPct
	trees := p.TreesPerHectare
	roof := p.VegetatedRoof
	rate := p.Cost
	return ProfileOverride{
		Rank:            &rank,
		Benefits:        append([]float64(nil), p.Benefits[:]...),
		CoolingC:        &cooling,
		StormwaterPct:   &storm,
		TreesPerHectare: &trees,
		VegetatedRoof:   &roof,
		Cost:            &rate,
	}
}

func (o ProfileOverride) apply(p Profile) (Profile, error) {
	if o.Rank != nil {
		p.Rank = *o.Rank
	}
	if o.Benefits != nil {
		if len(o.Benefits) != model.BenefitDimensions {
			return p, eris.Errorf("benefits needs %d scores, got %d", model.BenefitDimensions, len(o.Benefits))
		}
		for i, s := range o.Benefits {
			if s < 0 || s > 5 {
				return p, eris.Errorf("benefit %s score %g outside 0..5", model.BenefitNames[i], s)
			}
			p.Benefits[i] = s
		}
	}
	if o.CoolingC != nil {
		p.CoolingC = *o.CoolingC
	}
	if o.StormwaterPct != nil {
		p.StormwaterPct = *o.StormwaterPct
	}
	if o.TreesPerHectare != nil {
		p.TreesPerHectare = *o.TreesPerHectare
	}
	if o.VegetatedRoof != nil {
		p.VegetatedRoof = *o.VegetatedRoof
	}
	if o.Cost != nil {
		switch o.Cost.Basis {
		case cost.PerArea, cost.PerTree:
		default:
			return p, eris.Errorf("unknown cost basis %q", o.Cost.Basis)
		}
		p.Cost = *o.Cost
	}
	return p, nil
}
