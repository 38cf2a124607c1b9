package money

import "math"

// Money values travel as float64 and are normalized to the sale's canonical
// 6-fraction-digit scale exactly once at the point of computation.
// Keep every rounding rule in this package so contexts stay consistent.

const (
	// Scale is the canonical fractional precision for ledger amounts.
	Scale = 6

	scaleFactor = 1e6

	// epsilon nudges scaled values off binary-float boundaries so that
	// half-way cases round away from zero deterministically.
	epsilon = 1e-9
)

// Normalize rounds v to the canonical 6-fraction-digit scale, ties away
// from zero. Non-finite input yields 0. Normalize(Normalize(v)) == Normalize(v).
func Normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scaled := v * scaleFactor
	if scaled >= 0 {
		scaled += epsilon
	} else {
		scaled -= epsilon
	}
	return math.Round(scaled) / scaleFactor
}

// NormalizeAny accepts loosely typed amounts from legacy payload shapes.
// Anything that is not a finite number normalizes to 0.
func NormalizeAny(v any) float64 {
	switch value := v.(type) {
	case float64:
		return Normalize(value)
	case float32:
		return Normalize(float64(value))
	case int:
		return Normalize(float64(value))
	case int32:
		return Normalize(float64(value))
	case int64:
		return Normalize(float64(value))
	default:
		return 0
	}
}

// PercentOf returns part/total expressed as a normalized percentage.
// A zero, negative, or non-finite total yields 0 rather than an error.
func PercentOf(part float64, total float64) float64 {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return Normalize(part / total * 100)
}

// Round4 is the 4-fraction-digit display rounding used by read surfaces.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
