package greenops

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // shared printer for thousands separators
var printer = message.NewPrinter(language.English)

// FormatNumber formats n with thousands separators: 18248 -> "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats f with precision decimals and thousands separators:
// FormatFloat(1234.567, 2) -> "1,234.57".
func FormatFloat(f float64, precision int) string {
	if precision <= 0 {
		return FormatNumber(int64(math.Round(f)))
	}
	formatted := strconv.FormatFloat(f, 'f', precision, 64)
	intPart, frac, _ := strings.Cut(formatted, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return formatted
	}
	sign := ""
	if n == 0 && strings.HasPrefix(intPart, "-") {
		sign = "-"
	}
	return sign + FormatNumber(n) + "." + frac
}

// FormatAmount renders an impact amount: separators for ordinary
// magnitudes, scientific notation for very small or very large ones.
func FormatAmount(f float64) string {
	abs := math.Abs(f)
	switch {
	case f == 0:
		return "0"
	case abs < 0.001 || abs >= 1e12:
		return strings.Replace(fmt.Sprintf("%.3e", f), "e+", "e", 1)
	case abs < 1:
		return fmt.Sprintf("%.4f", f)
	default:
		return FormatFloat(f, 2)
	}
}

// FormatLarge abbreviates millions and billions: 1.5e9 -> "~1.5 billion".
func FormatLarge(n float64) string {
	switch {
	case n >= BillionThreshold:
		return fmt.Sprintf("~%.1f billion", n/BillionThreshold)
	case n >= LargeNumberThreshold:
		return fmt.Sprintf("~%.1f million", n/LargeNumberThreshold)
	default:
		return FormatNumber(int64(math.Round(n)))
	}
}
