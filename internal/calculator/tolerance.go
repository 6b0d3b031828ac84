package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs floating-point drift from repeated decimal arithmetic.
// Any amount whose magnitude does not exceed it is treated as zero.
const Tolerance = 0.01

// IsZero reports whether v is zero within Tolerance.
func IsZero(v float64) bool {
	return math.Abs(v) <= Tolerance
}

// Equal reports whether a and b are equal within Tolerance.
func Equal(a, b float64) bool {
	return IsZero(a - b)
}

// RoundCents rounds v to the nearest cent, half away from zero.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Cents converts v to a whole number of cents.
func Cents(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}

// FromCents converts a whole number of cents back to a monetary amount.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}
