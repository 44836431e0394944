package biquad

import "fmt"

// Chain is a cascade of biquad sections with an overall gain.
type Chain struct {
	sections []*Section
	gain     float64
}

// NewChain creates a cascade from the given section coefficients, applied in
// order, with unity gain.
func NewChain(coeffs []Coefficients) (*Chain, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("biquad: chain needs at least one section")
	}
	c := &Chain{
		sections: make([]*Section, len(coeffs)),
		gain:     1,
	}
	for i, sc := range coeffs {
		c.sections[i] = NewSection(sc)
	}
	return c, nil
}

// ProcessSample filters a single input sample through all sections.
func (c *Chain) ProcessSample(x float64) float64 {
	y := x * c.gain
	for _, s := range c.sections {
		y = s.ProcessSample(y)
	}
	return y
}

// ProcessBlockTo filters in into out sample by sample. The slices may alias.
func (c *Chain) ProcessBlockTo(out, in []float64) {
	for i, x := range in {
		out[i] = c.ProcessSample(x)
	}
}

// SetGain sets the overall gain applied before the first section.
func (c *Chain) SetGain(gain float64) {
	c.gain = gain
}

// Gain returns the overall gain.
func (c *Chain) Gain() float64 {
	return c.gain
}

// Len returns the number of sections.
func (c *Chain) Len() int {
	return len(c.sections)
}

// Section returns the i-th section for coefficient updates.
func (c *Chain) Section(i int) *Section {
	return c.sections[i]
}

// Reset clears the state of every section.
func (c *Chain) Reset() {
	for _, s := range c.sections {
		s.Reset()
	}
}
