package greenops

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, comparable with errors.Is.
var (
	// ErrInvalidUnit indicates a unit that is not a CO2-equivalent mass.
	ErrInvalidUnit = constError("not a CO2 equivalent unit")

	// ErrNegativeValue indicates a net negative climate impact.
	ErrNegativeValue = constError("negative carbon value")

	// ErrCalculationOverflow indicates a NaN or infinite value.
	ErrCalculationOverflow = constError("calculation overflow")
)
