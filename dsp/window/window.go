// Package window generates the window functions used by the offline
// measurement tools and applies them to sample blocks.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var errMismatchedLength = errors.New("window: samples and coefficients must have same length")

// Generate returns the symmetric window coefficients of the given type.
// Invalid lengths return nil.
func Generate(t Type, length int) []float64 {
	if length <= 0 {
		return nil
	}
	out := make([]float64, length)
	if length == 1 {
		out[0] = 1
		return out
	}
	n := float64(length - 1)
	for i := range out {
		x := float64(i) / n
		switch t {
		case TypeHann:
			out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*x)
		case TypeHamming:
			out[i] = 0.54 - 0.46*math.Cos(2*math.Pi*x)
		case TypeBlackman:
			out[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
		default:
			out[i] = 1
		}
	}
	return out
}

// Apply multiplies buf in place by the window of the given type.
func Apply(t Type, buf []float64) {
	coeffs := Generate(t, len(buf))
	if coeffs == nil {
		return
	}
	vecmath.MulBlockInPlace(buf, coeffs)
}

// ApplyCoefficients returns samples multiplied by precomputed coefficients.
func ApplyCoefficients(samples, coeffs []float64) ([]float64, error) {
	if len(samples) != len(coeffs) {
		return nil, fmt.Errorf("%w: %d != %d", errMismatchedLength, len(samples), len(coeffs))
	}
	out := make([]float64, len(samples))
	vecmath.MulBlock(out, samples, coeffs)
	return out, nil
}

// CoherentGain returns the mean of the window coefficients, the factor by
// which the window scales a coherent tone.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}
