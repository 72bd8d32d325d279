// Package wind derives the prevailing wind direction used to orient
// ventilation corridors.
package wind

import (
	"math"
	"time"

	"github.com/golang/geo/s1"
)

const (
	// DefaultDirectionDeg is a westerly wind, used when no observation
	// qualifies.
	DefaultDirectionDeg = 270.0
	// CalmSpeedMS is the speed at or below which a sample carries no
	// direction.
	CalmSpeedMS = 2.0
	// AlignmentToleranceDeg is how far a corridor axis may deviate from the
	// wind and still count as aligned.
	AlignmentToleranceDeg = 30.0
)

// Observation is one hourly wind sample.
type Observation struct {
	Time         time.Time `csv:"time" json:"time"`
	DirectionDeg float64   `csv:"direction_deg" json:"direction_deg"`
	SpeedMS      float64   `csv:"speed_ms" json:"speed_ms"`
}

// Prevailing returns the modal whole-degree direction of non-calm samples and
// the number of samples it was taken from. Ties go to the smallest bearing.
// With no qualifying sample it returns DefaultDirectionDeg and 0.
func Prevailing(obs []Observation) (float64, int) {
	var counts [360]int
	n := 0
	for _, o := range obs {
		if !(o.SpeedMS > CalmSpeedMS) || math.IsNaN(o.DirectionDeg) || math.IsInf(o.DirectionDeg, 0) {
			continue
		}
		d := int(math.Round(Normalize(o.DirectionDeg))) % 360
		counts[d]++
		n++
	}
	if n == 0 {
		return DefaultDirectionDeg, 0
	}
	best := 0
	for d := 1; d < 360; d++ {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return float64(best), n
}

// Normalize maps a bearing into [0, 360).
func Normalize(deg float64) float64 {
	a := (s1.Angle(deg) * s1.Degree).Normalized().Degrees()
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

// AngularDifference returns the smallest angle between two bearings, in
// [0, 180].
func AngularDifference(a, b float64) float64 {
	return math.Abs((s1.Angle(a-b) * s1.Degree).Normalized().Degrees())
}

// Aligned reports whether a corridor axis runs with the wind. The axis is
// undirected so a corridor bearing 90 is aligned with a wind from 270.
func Aligned(windDeg, axisDeg, toleranceDeg float64) bool {
	d := AngularDifference(windDeg, axisDeg)
	return math.Min(d, 180-d) <= toleranceDeg
}
