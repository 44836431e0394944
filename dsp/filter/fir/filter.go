// Package fir implements causal finite impulse response filtering with a
// circular delay line, processing one sample at a time.
package fir

import "fmt"

// Filter is a causal FIR filter. The zero value is not usable; construct one
// with New.
type Filter struct {
	coeffs []float64
	delay  []float64
	pos    int
}

// New creates an FIR filter with the given coefficients. coeffs[0] weights
// the current input sample, coeffs[k] the input k samples ago. The slice is
// copied.
func New(coeffs []float64) (*Filter, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("fir: need at least one coefficient")
	}
	f := &Filter{
		coeffs: make([]float64, len(coeffs)),
		delay:  make([]float64, len(coeffs)),
	}
	copy(f.coeffs, coeffs)
	return f, nil
}

// MovingAverage creates a causal moving-average filter over length samples.
func MovingAverage(length int) (*Filter, error) {
	if length < 1 {
		return nil, fmt.Errorf("fir: moving average length must be at least 1, got %d", length)
	}
	coeffs := make([]float64, length)
	w := 1 / float64(length)
	for i := range coeffs {
		coeffs[i] = w
	}
	return New(coeffs)
}

// ProcessSample filters a single input sample and returns the output sample.
func (f *Filter) ProcessSample(x float64) float64 {
	f.delay[f.pos] = x
	var y float64
	p := f.pos
	for _, c := range f.coeffs {
		y += c * f.delay[p]
		p--
		if p < 0 {
			p = len(f.delay) - 1
		}
	}
	f.pos++
	if f.pos >= len(f.delay) {
		f.pos = 0
	}
	return y
}

// ProcessBlock filters a block of samples and returns a new output slice.
func (f *Filter) ProcessBlock(in []float64) []float64 {
	out := make([]float64, len(in))
	f.ProcessBlockTo(out, in)
	return out
}

// ProcessBlockTo filters in into out sample by sample. The slices may alias.
// It panics if out is shorter than in.
func (f *Filter) ProcessBlockTo(out, in []float64) {
	for i, x := range in {
		out[i] = f.ProcessSample(x)
	}
}

// Order returns the filter order (number of coefficients minus one).
func (f *Filter) Order() int {
	return len(f.coeffs) - 1
}

// Coefficients returns a copy of the filter coefficients.
func (f *Filter) Coefficients() []float64 {
	out := make([]float64, len(f.coeffs))
	copy(out, f.coeffs)
	return out
}

// Reset clears the delay line.
func (f *Filter) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
	f.pos = 0
}
