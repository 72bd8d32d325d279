package geoio

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/model"
)

// ReadBuildingsShapefile reads building footprints and their attributes from
// an ESRI shapefile. Attribute names are matched case-insensitively against
// the same keys as GeoJSON properties, truncated to the 10-character dBASE
// limit.
func ReadBuildingsShapefile(shpPath string) ([]model.Building, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	attr := func(keys []string) string {
		for _, k := range keys {
			if len(k) > 10 {
				k = k[:10]
			}
			idx, ok := fieldIdx[k]
			if !ok {
				continue
			}
			if v := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00")); v != "" {
				return v
			}
		}
		return ""
	}

	var out []model.Building
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		g := ShapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		b := model.Building{
			ID:       attr([]string{"id", "osm_id", "fid"}),
			Geometry: g,
			Category: attr(categoryKeys),
			Source:   attr(sourceKeys),
		}
		if b.ID == "" {
			b.ID = strconv.Itoa(n)
		}
		if b.Source == "" {
			b.Source = shpPath
		}
		if h, ok := parseMeasure(attr(heightKeys)); ok {
			b.Height = &h
		}
		if fl, ok := parseMeasure(attr(floorKeys)); ok {
			floors := int(fl)
			b.Floors = &floors
		}
		out = append(out, b)
	}

	if skipped > 0 {
		zap.L().Debug("geoio: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// ShapeToGeom converts a go-shp shape. Points and polylines are converted so
// the sanitizer can count them as discards; unsupported or empty shapes
// return nil.
func ShapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	default:
		return nil
	}
}

func partRanges(numParts int32, parts []int32, numPoints int) [][2]int32 {
	out := make([][2]int32, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(numPoints)
		if i+1 < numParts {
			end = parts[i+1]
		}
		out = append(out, [2]int32{start, end})
	}
	return out
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY)
	for _, r := range partRanges(pl.NumParts, pl.Parts, len(pl.Points)) {
		flat := make([]float64, 0, 2*(r[1]-r[0]))
		for j := r[0]; j < r[1]; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geoio: skipping malformed linestring part", zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon groups shapefile rings into polygons. Clockwise rings
// start a new polygon and counter-clockwise rings are holes of the polygon
// before them.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geoio: skipping malformed polygon part", zap.Error(err))
		}
		current = nil
	}

	for _, r := range partRanges(p.NumParts, p.Parts, len(p.Points)) {
		ring := make(orb.Ring, 0, r[1]-r[0])
		flat := make([]float64, 0, 2*(r[1]-r[0]))
		for j := r[0]; j < r[1]; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(ring) < 3 {
			continue
		}
		lr := geom.NewLinearRingFlat(geom.XY, flat)

		if ring.Orientation() == orb.CW || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(lr); err != nil {
			zap.L().Debug("geoio: skipping malformed polygon ring", zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
