// Package spatial converts input geometries into the planar shapes used by
// the area overlay.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/model"
)

// Shape is an area-bearing geometry prepared for overlay.
type Shape struct {
	MultiPolygon orb.MultiPolygon
	Bound        orb.Bound
	Area         float64
}

// Footprint pairs a building with its prepared shape. Building points into
// the caller's slice.
type Footprint struct {
	Shape
	Building *model.Building
}

// Area is a prepared green/blue feature.
type Area struct {
	Shape
	Kind model.GreenBlueKind
}

// SanitizedBuildings is the polygon-only building collection plus the number
// of records that were dropped.
type SanitizedBuildings struct {
	Footprints []Footprint
	Discarded  int
}

// SanitizeBuildings keeps polygon and multi-polygon buildings and discards
// every other geometry type. Discards are a data-quality signal, not an error.
func SanitizeBuildings(buildings []model.Building) SanitizedBuildings {
	out := SanitizedBuildings{Footprints: make([]Footprint, 0, len(buildings))}
	for i := range buildings {
		shape, ok := NewShape(buildings[i].Geometry)
		if !ok {
			out.Discarded++
			continue
		}
		out.Footprints = append(out.Footprints, Footprint{Shape: shape, Building: &buildings[i]})
	}

	if out.Discarded > 0 {
		zap.L().Warn("spatial: discarded non-polygon buildings",
			zap.Int("discarded", out.Discarded),
			zap.Int("kept", len(out.Footprints)),
		)
	}
	return out
}

// SanitizeGreenBlue applies the same filter to green/blue features.
func SanitizeGreenBlue(features []model.GreenBlue) ([]Area, int) {
	areas := make([]Area, 0, len(features))
	discarded := 0
	for _, f := range features {
		shape, ok := NewShape(f.Geometry)
		if !ok {
			discarded++
			continue
		}
		kind := f.Kind
		if kind == "" {
			kind = model.KindGreen
		}
		areas = append(areas, Area{Shape: shape, Kind: kind})
	}

	if discarded > 0 {
		zap.L().Warn("spatial: discarded non-polygon green/blue features",
			zap.Int("discarded", discarded),
			zap.Int("kept", len(areas)),
		)
	}
	return areas, discarded
}

// NewShape converts a polygon or multi-polygon into a Shape. It returns false
// for nil geometries, other geometry types, and polygons without rings.
func NewShape(g geom.T) (Shape, bool) {
	mp, ok := ToMultiPolygon(g)
	if !ok {
		return Shape{}, false
	}
	return Shape{
		MultiPolygon: mp,
		Bound:        mp.Bound(),
		Area:         planar.Area(mp),
	}, true
}

// ToMultiPolygon converts go-geom polygonal geometry into orb's planar model.
func ToMultiPolygon(g geom.T) (orb.MultiPolygon, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t == nil {
			return nil, false
		}
		p := toPolygon(t)
		if p == nil {
			return nil, false
		}
		return orb.MultiPolygon{p}, true

	case *geom.MultiPolygon:
		if t == nil {
			return nil, false
		}
		mp := make(orb.MultiPolygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			if p := toPolygon(t.Polygon(i)); p != nil {
				mp = append(mp, p)
			}
		}
		if len(mp) == 0 {
			return nil, false
		}
		return mp, true

	default:
		return nil, false
	}
}

func toPolygon(p *geom.Polygon) orb.Polygon {
	n := p.NumLinearRings()
	if n == 0 {
		return nil
	}
	poly := make(orb.Polygon, 0, n)
	for i := 0; i < n; i++ {
		coords := p.LinearRing(i).Coords()
		if len(coords) < 3 {
			if i == 0 {
				return nil
			}
			continue
		}
		ring := make(orb.Ring, len(coords))
		for j, c := range coords {
			ring[j] = orb.Point{c.X(), c.Y()}
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		poly = append(poly, ring)
	}
	return poly
}
