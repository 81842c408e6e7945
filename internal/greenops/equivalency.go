// Package greenops turns climate change impact results (kg CO2 eq) into
// relatable equivalencies such as miles driven or smartphones charged.
package greenops

import (
	"fmt"
	"math"
)

// Kind is an equivalency category.
type Kind int

// Equivalency kinds in display order.
const (
	MilesDriven Kind = iota
	SmartphonesCharged
	HomeDays
)

// String returns the label of k.
func (k Kind) String() string {
	switch k {
	case MilesDriven:
		return "miles driven"
	case SmartphonesCharged:
		return "smartphones charged"
	case HomeDays:
		return "days of home electricity"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is one computed equivalency.
type Result struct {
	Kind      Kind    `json:"kind"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Output holds every equivalency for one impact value.
type Output struct {
	InputKg     float64  `json:"input_kg"`
	Results     []Result `json:"results,omitempty"`
	DisplayText string   `json:"display_text,omitempty"`
	CompactText string   `json:"compact_text,omitempty"`
	IsEmpty     bool     `json:"is_empty"`
}

// Calculate computes equivalencies for value in unit. Values below
// MinEquivalencyThresholdKg yield an empty output without error.
func Calculate(value float64, unit string) (Output, error) {
	kg, err := NormalizeToKg(value, unit)
	if err != nil {
		return Output{IsEmpty: true}, err
	}
	if kg < MinEquivalencyThresholdKg {
		return Output{InputKg: kg, IsEmpty: true}, nil
	}

	miles := kg / EPAMilesDrivenFactor
	phones := kg / EPASmartphoneChargeFactor
	days := kg / EPAHomeDayFactor
	if math.IsInf(phones, 0) || math.IsNaN(phones) {
		return Output{IsEmpty: true}, ErrCalculationOverflow
	}

	results := []Result{
		{Kind: MilesDriven, Value: miles, Formatted: formatEquivalency(miles)},
		{Kind: SmartphonesCharged, Value: phones, Formatted: formatEquivalency(phones)},
		{Kind: HomeDays, Value: days, Formatted: formatEquivalency(days)},
	}

	return Output{
		InputKg: kg,
		Results: results,
		DisplayText: fmt.Sprintf("Equivalent to driving ~%s miles or charging ~%s smartphones",
			results[0].Formatted, results[1].Formatted),
		CompactText: fmt.Sprintf("(≈ %s mi, %s phones)", results[0].Formatted, results[1].Formatted),
	}, nil
}

// ForImpact returns the equivalencies of an impact row when its unit is a
// CO2-equivalent mass; ok is false for every other impact category or when
// the amount cannot be expressed (negative, too small).
func ForImpact(amount float64, unit string) (Output, bool) {
	if !IsClimateUnit(unit) {
		return Output{IsEmpty: true}, false
	}
	out, err := Calculate(amount, unit)
	if err != nil || out.IsEmpty {
		return out, false
	}
	return out, true
}

func formatEquivalency(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
