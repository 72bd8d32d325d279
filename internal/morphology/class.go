package morphology

// Class labels shared by the density and roughness scales.
const (
	ClassVeryHigh = "Very High"
	ClassHigh     = "High"
	ClassMedium   = "Medium"
	ClassLow      = "Low"
	ClassVeryLow  = "Very Low"
)

// DensityClass buckets a built density.
func DensityClass(density float64) string {
	switch {
	case density >= 0.7:
		return ClassVeryHigh
	case density >= 0.6:
		return ClassHigh
	case density >= 0.3:
		return ClassMedium
	case density >= 0.15:
		return ClassLow
	default:
		return ClassVeryLow
	}
}

// RoughnessClass buckets a roughness length in meters.
func RoughnessClass(z0 float64) string {
	switch {
	case z0 >= 1.5:
		return ClassVeryHigh
	case z0 >= 1.0:
		return ClassHigh
	case z0 >= 0.5:
		return ClassMedium
	case z0 >= 0.1:
		return ClassLow
	default:
		return ClassVeryLow
	}
}
