// Package units provides shared constants and conversion for speed units
package units

import "fmt"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

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
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Feature records store speeds in m/s (meters per second).
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// SpeedLabel returns a human-readable axis label for the target units,
// e.g. "speed (km/h)".
func SpeedLabel(targetUnits string) string {
	switch targetUnits {
	case MPH:
		return "speed (mph)"
	case KMPH, KPH:
		return "speed (km/h)"
	default:
		return "speed (m/s)"
	}
}

// FormatSpeed renders a converted speed with its unit suffix.
func FormatSpeed(speedMPS float64, targetUnits string) string {
	converted := ConvertSpeed(speedMPS, targetUnits)
	switch targetUnits {
	case MPH:
		return fmt.Sprintf("%.1f mph", converted)
	case KMPH, KPH:
		return fmt.Sprintf("%.1f km/h", converted)
	default:
		return fmt.Sprintf("%.1f m/s", converted)
	}
}
