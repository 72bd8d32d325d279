package model

import "github.com/twpayne/go-geom"

// Building is a footprint record supplied by the data acquisition layer.
// Records are never modified after loading; the morphology stage holds
// pointers into the caller's slice.
type Building struct {
	ID       string
	Geometry geom.T
	Height   *float64 // explicit height in meters
	Floors   *int     // building:levels
	Category string   // building tag, e.g. "apartments"
	Source   string   // provenance, e.g. "osm" or "ms_footprints"
}

// GreenBlueKind distinguishes vegetated from water features.
type GreenBlueKind string

// Green/blue feature kinds.
const (
	KindGreen GreenBlueKind = "green"
	KindWater GreenBlueKind = "water"
)

// GreenBlue is an existing park, garden, or water body.
type GreenBlue struct {
	ID       string
	Kind     GreenBlueKind
	Geometry geom.T
}
