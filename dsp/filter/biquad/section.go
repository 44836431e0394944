// Package biquad implements second-order IIR filter sections and cascades in
// Direct Form II Transposed.
package biquad

import "github.com/openbiosig/semg-ecg-removal/dsp/core"

// Coefficients holds normalized biquad coefficients with a0 = 1.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section is a single second-order filter section.
type Section struct {
	coeffs Coefficients
	s1, s2 float64
}

// NewSection creates a section with the given coefficients.
func NewSection(coeffs Coefficients) *Section {
	return &Section{coeffs: coeffs}
}

// ProcessSample filters a single input sample and returns the output sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.coeffs.B0*x + s.s1
	s.s1 = s.coeffs.B1*x - s.coeffs.A1*y + s.s2
	s.s2 = core.FlushDenormal(s.coeffs.B2*x - s.coeffs.A2*y)
	return y
}

// ProcessBlockTo filters in into out sample by sample. The slices may alias.
func (s *Section) ProcessBlockTo(out, in []float64) {
	for i, x := range in {
		out[i] = s.ProcessSample(x)
	}
}

// Coefficients returns the section coefficients.
func (s *Section) Coefficients() Coefficients {
	return s.coeffs
}

// UpdateCoefficients replaces the coefficients without touching the filter
// state.
func (s *Section) UpdateCoefficients(coeffs Coefficients) {
	s.coeffs = coeffs
}

// Reset clears the section state.
func (s *Section) Reset() {
	s.s1 = 0
	s.s2 = 0
}
