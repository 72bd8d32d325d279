// Package model defines the grid cell, building, and intervention types shared
// across the planning pipeline.
package model

import (
	"fmt"
	"strings"
)

// Category is a land intervention assignable to a grid cell. The set is closed:
// adding a value requires a matching coefficient table entry.
type Category int

// Intervention categories.
const (
	CategoryNone Category = iota
	CategoryGreenRoof
	CategoryUrbanForest
	CategoryVentilationCorridor
	CategoryPermeablePavement
	CategoryWetlandRestoration
	CategoryRainGarden
)

var categoryNames = [...]string{
	CategoryNone:                "None",
	CategoryGreenRoof:           "Green Roof",
	CategoryUrbanForest:         "Urban Forest",
	CategoryVentilationCorridor: "Ventilation Corridor",
	CategoryPermeablePavement:   "Permeable Pavement",
	CategoryWetlandRestoration:  "Wetland Restoration",
	CategoryRainGarden:          "Rain Garden",
}

// Interventions returns every category except None, in declaration order.
func Interventions() []Category {
	return []Category{
		CategoryGreenRoof,
		CategoryUrbanForest,
		CategoryVentilationCorridor,
		CategoryPermeablePavement,
		CategoryWetlandRestoration,
		CategoryRainGarden,
	}
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	return c >= CategoryNone && int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory resolves a display name ("Green Roof") or slug ("green_roof").
func ParseCategory(s string) (Category, error) {
	norm := normalizeCategory(s)
	for i, name := range categoryNames {
		if normalizeCategory(name) == norm {
			return Category(i), nil
		}
	}
	return CategoryNone, &UnknownCategoryError{Name: s}
}

func normalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Slug returns the snake_case form used in file names and query parameters.
func (c Category) Slug() string {
	return strings.ReplaceAll(strings.ToLower(c.String()), " ", "_")
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, &UnknownCategoryError{Name: c.String()}
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnknownCategoryError is returned when a category has no coefficient entry
// or a name cannot be resolved.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown intervention category %q", e.Name)
}
