// Package iir implements causal infinite impulse response filtering in
// direct form I with circular input and output delay lines.
package iir

import "fmt"

// Filter is a causal IIR filter implementing the difference equation
//
//	a[0]*y[n] = b[0]*x[n] + ... + b[nb]*x[n-nb] - a[1]*y[n-1] - ... - a[na]*y[n-na]
//
// Coefficients are normalized by a[0] at construction.
type Filter struct {
	b []float64
	a []float64 // a[0] folded in, stored starting at a[1]

	in     []float64
	out    []float64
	inPos  int
	outPos int
}

// New creates an IIR filter from numerator b and denominator a coefficients.
// a[0] must be non-zero.
func New(b, a []float64) (*Filter, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("iir: need at least one numerator coefficient")
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("iir: need at least one denominator coefficient")
	}
	if a[0] == 0 {
		return nil, fmt.Errorf("iir: leading denominator coefficient must be non-zero")
	}

	f := &Filter{
		b:   make([]float64, len(b)),
		a:   make([]float64, len(a)-1),
		in:  make([]float64, len(b)),
		out: make([]float64, max(len(a)-1, 1)),
	}
	for i, c := range b {
		f.b[i] = c / a[0]
	}
	for i, c := range a[1:] {
		f.a[i] = c / a[0]
	}
	return f, nil
}

// ProcessSample filters a single input sample and returns the output sample.
func (f *Filter) ProcessSample(x float64) float64 {
	f.in[f.inPos] = x

	var y float64
	p := f.inPos
	for _, c := range f.b {
		y += c * f.in[p]
		p--
		if p < 0 {
			p = len(f.in) - 1
		}
	}
	p = f.outPos
	for _, c := range f.a {
		p--
		if p < 0 {
			p = len(f.out) - 1
		}
		y -= c * f.out[p]
	}

	f.out[f.outPos] = y
	f.inPos++
	if f.inPos >= len(f.in) {
		f.inPos = 0
	}
	f.outPos++
	if f.outPos >= len(f.out) {
		f.outPos = 0
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

// Order returns the filter order, the larger of the numerator and
// denominator orders.
func (f *Filter) Order() int {
	return max(len(f.b)-1, len(f.a))
}

// Reset clears both delay lines.
func (f *Filter) Reset() {
	for i := range f.in {
		f.in[i] = 0
	}
	for i := range f.out {
		f.out[i] = 0
	}
	f.inPos = 0
	f.outPos = 0
}
