// Package core provides shared numeric helpers used across the DSP
// packages.
package core

import "math"

// Clamp limits x to the inclusive range [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// IsFinite reports whether x is neither NaN nor an infinity.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FlushDenormal returns zero for subnormal magnitudes, x otherwise.
// Recursive filter states can otherwise decay into the subnormal range
// and slow down per-sample processing.
func FlushDenormal(x float64) float64 {
	if math.Abs(x) < math.SmallestNonzeroFloat64*1e3 {
		return 0
	}
	return x
}

// LinearToDB converts a linear amplitude ratio to decibels.
func LinearToDB(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(x)
}

// DBToLinear converts decibels to a linear amplitude ratio.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// PowerToDB converts a power ratio to decibels.
func PowerToDB(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(x)
}
