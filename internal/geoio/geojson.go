// Package geoio reads planner inputs from GeoJSON, shapefiles and CSV.
package geoio

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/model"
)

// Property keys read from building features, in lookup order.
var (
	heightKeys   = []string{"height", "building:height"}
	floorKeys    = []string{"building:levels", "floors", "levels"}
	categoryKeys = []string{"building", "category", "building:use"}
	sourceKeys   = []string{"source", "provenance"}
)

// ParseFeatureCollection decodes a GeoJSON FeatureCollection.
func ParseFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geoio: decode feature collection")
	}
	return &fc, nil
}

// DecodeBuildings reads a building FeatureCollection from r.
func DecodeBuildings(r io.Reader, source string) ([]model.Building, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geoio: read buildings")
	}
	fc, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return BuildingsFromFeatures(fc, source), nil
}

// ReadBuildingsGeoJSON reads buildings from a GeoJSON file. The file name is
// the provenance of features without a source property.
func ReadBuildingsGeoJSON(path string) ([]model.Building, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeBuildings(f, path)
}

// BuildingsFromFeatures maps features to buildings. Geometry is kept as is;
// non-polygon features are filtered later by the sanitizer.
func BuildingsFromFeatures(fc *geojson.FeatureCollection, source string) []model.Building {
	out := make([]model.Building, 0, len(fc.Features))
	for i, f := range fc.Features {
		b := model.Building{
			ID:       featureID(f, i),
			Geometry: f.Geometry,
			Height:   floatProp(f.Properties, heightKeys),
			Category: stringProp(f.Properties, categoryKeys),
			Source:   stringProp(f.Properties, sourceKeys),
		}
		if fl := floatProp(f.Properties, floorKeys); fl != nil {
			n := int(*fl)
			b.Floors = &n
		}
		if b.Source == "" {
			b.Source = source
		}
		out = append(out, b)
	}
	zap.L().Debug("geoio: decoded buildings", zap.Int("features", len(out)), zap.String("source", source))
	return out
}

// DecodeGreenBlue reads green and water features from r.
func DecodeGreenBlue(r io.Reader) ([]model.GreenBlue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geoio: read green/blue")
	}
	fc, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return GreenBlueFromFeatures(fc), nil
}

// ReadGreenBlueGeoJSON reads green and water features from a GeoJSON file.
func ReadGreenBlueGeoJSON(path string) ([]model.GreenBlue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeGreenBlue(f)
}

// GreenBlueFromFeatures maps features to green/blue areas. A feature is water
// when its kind is "water", it carries natural=water, or it has a waterway
// tag; everything else is green.
func GreenBlueFromFeatures(fc *geojson.FeatureCollection) []model.GreenBlue {
	out := make([]model.GreenBlue, 0, len(fc.Features))
	for i, f := range fc.Features {
		out = append(out, model.GreenBlue{
			ID:       featureID(f, i),
			Kind:     kindOf(f.Properties),
			Geometry: f.Geometry,
		})
	}
	return out
}

func kindOf(props map[string]any) model.GreenBlueKind {
	switch {
	case strings.EqualFold(stringProp(props, []string{"kind"}), string(model.KindWater)),
		strings.EqualFold(stringProp(props, []string{"natural"}), "water"),
		stringProp(props, []string{"waterway"}) != "":
		return model.KindWater
	default:
		return model.KindGreen
	}
}

func featureID(f *geojson.Feature, i int) string {
	if f.ID != "" {
		return f.ID
	}
	if id := stringProp(f.Properties, []string{"id", "osm_id"}); id != "" {
		return id
	}
	return strconv.Itoa(i)
}

func stringProp(props map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := props[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// floatProp accepts numbers and numeric strings with an optional unit
// suffix such as "12 m".
func floatProp(props map[string]any, keys []string) *float64 {
	for _, k := range keys {
		switch v := props[k].(type) {
		case float64:
			return &v
		case string:
			if f, ok := parseMeasure(v); ok {
				return &f
			}
		}
	}
	return nil
}

func parseMeasure(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
