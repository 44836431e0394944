// Package design computes biquad coefficients for common filter responses
// using the bilinear-transform cookbook formulas, plus Butterworth cascades.
package design

import (
	"fmt"
	"math"

	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
)

func validate(freq, q, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("design: sample rate must be positive, got %g", sampleRate)
	}
	if freq <= 0 || freq >= sampleRate/2 {
		return fmt.Errorf("design: frequency %g Hz outside (0, %g)", freq, sampleRate/2)
	}
	if q <= 0 {
		return fmt.Errorf("design: Q must be positive, got %g", q)
	}
	return nil
}

// Lowpass returns second-order lowpass coefficients at the given cutoff.
func Lowpass(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	if err := validate(freq, q, sampleRate); err != nil {
		return biquad.Coefficients{}, err
	}
	w0 := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)

	return normalize(
		(1-cw)/2, 1-cw, (1-cw)/2,
		1+alpha, -2*cw, 1-alpha,
	), nil
}

// Highpass returns second-order highpass coefficients at the given cutoff.
func Highpass(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	if err := validate(freq, q, sampleRate); err != nil {
		return biquad.Coefficients{}, err
	}
	w0 := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)

	return normalize(
		(1+cw)/2, -(1 + cw), (1+cw)/2,
		1+alpha, -2*cw, 1-alpha,
	), nil
}

// Bandpass returns second-order bandpass coefficients with 0 dB peak gain at
// the center frequency.
func Bandpass(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	if err := validate(freq, q, sampleRate); err != nil {
		return biquad.Coefficients{}, err
	}
	w0 := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)

	return normalize(
		alpha, 0, -alpha,
		1+alpha, -2*cw, 1-alpha,
	), nil
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	inv := 1 / a0
	return biquad.Coefficients{
		B0: b0 * inv, B1: b1 * inv, B2: b2 * inv,
		A1: a1 * inv, A2: a2 * inv,
	}
}
