package greenops

// EPA greenhouse gas equivalency factors, kg CO2 eq per activity unit
// (https://www.epa.gov/energy/greenhouse-gas-equivalencies-calculator).
// An equivalency is kg_CO2eq / factor.
const (
	// EPAMilesDrivenFactor is kg CO2 eq per mile of an average passenger car.
	EPAMilesDrivenFactor = 0.192

	// EPASmartphoneChargeFactor is kg CO2 eq per full smartphone charge.
	EPASmartphoneChargeFactor = 0.00822

	// EPAHomeDayFactor is kg CO2 eq per day of average US home electricity.
	EPAHomeDayFactor = 18.3
)

// Mass conversions to kilograms.
const (
	GramsToKg  = 0.001
	KgToKg     = 1.0
	TonsToKg   = 1000.0
	PoundsToKg = 0.453592
)

// Display thresholds.
const (
	// MinEquivalencyThresholdKg is the smallest value that gets equivalencies.
	MinEquivalencyThresholdKg = 1.0

	LargeNumberThreshold = 1_000_000
	BillionThreshold     = 1_000_000_000
)
