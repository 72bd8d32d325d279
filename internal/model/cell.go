package model

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// CellID identifies a grid cell by its lattice position. Row 0 is the
// southernmost row and column 0 the westernmost column.
type CellID struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (id CellID) String() string {
	return fmt.Sprintf("r%d_c%d", id.Row, id.Col)
}

// ParseCellID parses the String form "r<row>_c<col>".
func ParseCellID(s string) (CellID, error) {
	var id CellID
	if _, err := fmt.Sscanf(s, "r%d_c%d", &id.Row, &id.Col); err != nil || id.String() != s {
		return CellID{}, eris.Errorf("model: invalid cell id %q", s)
	}
	if id.Row < 0 || id.Col < 0 {
		return CellID{}, eris.Errorf("model: negative cell id %q", s)
	}
	return id, nil
}

// Less orders ids row-major.
func (id CellID) Less(other CellID) bool {
	if id.Row != other.Row {
		return id.Row < other.Row
	}
	return id.Col < other.Col
}

// Metrics holds the urban-form measurements of one cell.
type Metrics struct {
	Density            float64 `json:"density"`
	RoughnessLength    float64 `json:"roughness_length"`
	MeanBuildingHeight float64 `json:"mean_building_height"`
	SkyViewFactor      float64 `json:"sky_view_factor"`
	BuiltArea          float64 `json:"built_area"`
	BuildingCount      int     `json:"building_count"`
	DensityClass       string  `json:"density_class"`
	RoughnessClass     string  `json:"roughness_class"`
}

// Benefit dimensions, in BenefitVector order.
const (
	BenefitClimateAdaptation = iota
	BenefitBiodiversity
	BenefitAirQuality
	BenefitWaterManagement
	BenefitSocialWellbeing
	BenefitEconomicValue
	BenefitDimensions
)

// BenefitNames labels the benefit dimensions.
var BenefitNames = [BenefitDimensions]string{
	"climate_adaptation",
	"biodiversity",
	"air_quality",
	"water_management",
	"social_wellbeing",
	"economic_value",
}

// BenefitVector scores each benefit dimension from 0 to 5.
type BenefitVector [BenefitDimensions]float64

// Mean returns the unweighted average score.
func (v BenefitVector) Mean() float64 {
	var sum float64
	for _, s := range v {
		sum += s
	}
	return sum / BenefitDimensions
}

// Impact is the estimated environmental effect of an intervention.
type Impact struct {
	CoolingC      float64 `json:"cooling_c"`
	PM25KgYr      float64 `json:"pm25_kg_yr"`
	CO2KgYr       float64 `json:"co2_kg_yr"`
	StormwaterPct float64 `json:"stormwater_pct"`
	TreeCount     int     `json:"tree_count"`
}

// GridCell is created by the grid builder and enriched by each later stage.
type GridCell struct {
	ID    CellID    `json:"cell_id"`
	Index int       `json:"index"`
	Bound orb.Bound `json:"-"`
	Area  float64   `json:"area_m2"`

	Metrics Metrics `json:"metrics"`

	HasGreenBlue     bool     `json:"has_existing_green_blue"`
	NearWater        bool     `json:"near_water"`
	PopulationWeight *float64 `json:"population_weight,omitempty"`

	Category        Category      `json:"proposed_category"`
	CorridorBearing *float64      `json:"corridor_bearing_deg,omitempty"`
	CorridorAligned *bool         `json:"corridor_aligned,omitempty"`
	Benefits        BenefitVector `json:"benefit_vector"`
	OverallScore    float64       `json:"overall_score"`
	Impact          Impact        `json:"environmental_impact"`
	Cost            float64       `json:"cost"`

	Priority float64 `json:"composite_priority"`
	Rank     int     `json:"rank,omitempty"`
	Selected bool    `json:"selected"`
}

// BBox is a bound serialized as [min_x, min_y, max_x, max_y].
type BBox [4]float64

// BBoxOf converts a bound.
func BBoxOf(b orb.Bound) BBox {
	return BBox{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

// Bound converts back to an orb bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
}

type gridCellJSON GridCell

// MarshalJSON adds the cell square as "bbox".
func (c GridCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		gridCellJSON
		BBox BBox `json:"bbox"`
	}{gridCellJSON(c), BBoxOf(c.Bound)})
}

// UnmarshalJSON restores Bound from "bbox" when present.
func (c *GridCell) UnmarshalJSON(data []byte) error {
	aux := struct {
		*gridCellJSON
		BBox *BBox `json:"bbox"`
	}{gridCellJSON: (*gridCellJSON)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.BBox != nil {
		c.Bound = aux.BBox.Bound()
	}
	return nil
}

// Polygon returns the cell square as a closed counter-clockwise ring.
func (c *GridCell) Polygon() orb.Polygon {
	return c.Bound.ToPolygon()
}

// Geometry returns the cell square as a go-geom polygon for encoders.
func (c *GridCell) Geometry() *geom.Polygon {
	b := c.Bound
	return geom.NewPolygonFlat(geom.XY, []float64{
		b.Min.X(), b.Min.Y(),
		b.Max.X(), b.Min.Y(),
		b.Max.X(), b.Max.Y(),
		b.Min.X(), b.Max.Y(),
		b.Min.X(), b.Min.Y(),
	}, []int{10})
}

// Intervention reports whether the cell has a category other than None.
func (c *GridCell) Intervention() bool {
	return c.Category != CategoryNone
}
