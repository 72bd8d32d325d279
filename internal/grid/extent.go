package grid

import (
	"github.com/paulmach/orb"
)

// StudyArea restricts the grid to explicit bounds instead of the data extent.
type StudyArea struct {
	MinX float64 `json:"min_x" yaml:"min_x" mapstructure:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y" mapstructure:"min_y"`
	MaxX float64 `json:"max_x" yaml:"max_x" mapstructure:"max_x"`
	MaxY float64 `json:"max_y" yaml:"max_y" mapstructure:"max_y"`
}

// Bound returns the study area as an orb bound.
func (s StudyArea) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{s.MinX, s.MinY}, Max: orb.Point{s.MaxX, s.MaxY}}
}

// AroundCenter builds a square study area enclosing a circle of radius
// meters around a projected center point.
func AroundCenter(x, y, radius float64) StudyArea {
	return StudyArea{MinX: x - radius, MinY: y - radius, MaxX: x + radius, MaxY: y + radius}
}

// Union returns the combined bound of bs. ok is false when bs is empty.
func Union(bs ...orb.Bound) (orb.Bound, bool) {
	if len(bs) == 0 {
		return orb.Bound{}, false
	}
	out := bs[0]
	for _, b := range bs[1:] {
		out = out.Union(b)
	}
	return out, true
}
