// Package units provides shared constants and conversions for screen-space units
package units

import "math"

// Unit constants
const (
	PX  = "px"
	DVA = "dva"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{PX, DVA}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "px, dva"
}

// PixelsToDegrees converts a screen distance in pixels to degrees of visual
// angle using the session's calibrated pixels-per-degree. Returns NaN when
// the calibration is missing (zero or negative).
func PixelsToDegrees(px, pxPerDegree float64) float64 {
	if pxPerDegree <= 0 {
		return math.NaN()
	}
	return px / pxPerDegree
}

// ConvertDistance converts a pixel distance to the target units.
// Unknown units leave the value in pixels.
func ConvertDistance(px, pxPerDegree float64, targetUnits string) float64 {
	switch targetUnits {
	case DVA:
		return PixelsToDegrees(px, pxPerDegree)
	default:
		return px
	}
}
