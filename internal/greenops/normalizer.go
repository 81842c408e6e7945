package greenops

import (
	"math"
	"strings"
)

// co2Suffixes are the spellings impact methods use after the mass unit, after
// lower-casing and removing spaces, dashes and dots: "kg CO2 eq", "kg CO2-Eq",
// "kgCO2e", "kg CO2 equivalent".
var co2Suffixes = []string{"co2equivalents", "co2equivalent", "co2eq", "co2e"} //nolint:gochecknoglobals // lookup table

// splitUnit separates "kg CO2 eq" into "kg" and whether a CO2 suffix was
// present.
func splitUnit(unit string) (string, bool) {
	u := strings.ToLower(unit)
	u = strings.NewReplacer(" ", "", "-", "", ".", "", "_", "").Replace(u)
	for _, s := range co2Suffixes {
		if strings.HasSuffix(u, s) {
			return strings.TrimSuffix(u, s), true
		}
	}
	return u, false
}

func massFactor(mass string) (float64, bool) {
	switch mass {
	case "g":
		return GramsToKg, true
	case "kg":
		return KgToKg, true
	case "t", "tonne", "tonnes":
		return TonsToKg, true
	case "lb", "lbs":
		return PoundsToKg, true
	default:
		return 0, false
	}
}

// IsClimateUnit reports whether unit is a CO2-equivalent mass such as
// "kg CO2 eq" or "t CO2e".
func IsClimateUnit(unit string) bool {
	mass, co2 := splitUnit(unit)
	if !co2 {
		return false
	}
	_, ok := massFactor(mass)
	return ok
}

// NormalizeToKg converts value in a CO2-equivalent unit to kg CO2 eq. Bare
// mass units ("kg", "t") are accepted too.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}
	mass, _ := splitUnit(unit)
	factor, ok := massFactor(mass)
	if !ok {
		return 0, ErrInvalidUnit
	}
	result := value * factor
	if math.IsInf(result, 0) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}
