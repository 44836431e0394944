package wavelet

import (
	"fmt"

	"github.com/openbiosig/semg-ecg-removal/dsp/delay"
)

// Coeffs holds the transform output for a single input sample. Details[0] is
// the finest scale (level 1), Details[levels-1] the coarsest.
type Coeffs struct {
	Approx  float64
	Details []float64
}

// atrous is a causal FIR filter whose taps are spaced stride samples apart,
// the streaming form of the per-level upsampled filters of the stationary
// transform. During the first samples the delay line is extended
// periodically, matching the boundary handling of the offline transform, so
// the output does not fade in from zero.
type atrous struct {
	taps   []float64
	stride int
	buf    []float64
	pos    int
	warm   int
}

func newAtrous(taps []float64, stride int) *atrous {
	return &atrous{
		taps:   taps,
		stride: stride,
		buf:    make([]float64, (len(taps)-1)*stride+1),
	}
}

func (f *atrous) process(x float64) float64 {
	n := len(f.buf)
	f.buf[f.pos] = x
	if f.warm < n-1 {
		f.warm++
		src := 0
		for i := f.pos + 1; i < n; i++ {
			f.buf[i] = f.buf[src]
			src++
		}
	}

	var y float64
	p := f.pos
	for _, c := range f.taps {
		y += c * f.buf[p]
		p -= f.stride
		if p < 0 {
			p += n
		}
	}
	f.pos++
	if f.pos >= n {
		f.pos = 0
	}
	return y
}

func (f *atrous) reset() {
	for i := range f.buf {
		f.buf[i] = 0
	}
	f.pos = 0
	f.warm = 0
}

// Transform is a causal L-level stationary wavelet transform for one channel.
// Decompose and Reconstruct each advance the engine by one sample and must be
// called in lockstep.
type Transform struct {
	family Family
	levels int

	analysisLo []*atrous
	analysisHi []*atrous
	synthLo    []*atrous
	synthHi    []*atrous

	// align[k] delays the level-(k+1) detail so every scale arrives at the
	// synthesis stage with the same accumulated delay. Nil for the coarsest.
	align []*delay.Line
	delay int
}

// New creates a transform with the given family and number of decomposition
// levels.
func New(family Family, levels int) (*Transform, error) {
	if !family.valid() {
		return nil, fmt.Errorf("wavelet: invalid family")
	}
	if levels < 1 {
		return nil, fmt.Errorf("wavelet: levels must be at least 1, got %d", levels)
	}
	if levels > 16 {
		return nil, fmt.Errorf("wavelet: levels must be at most 16, got %d", levels)
	}

	decLo, decHi, recLo, recHi := family.filters()
	m := family.Len()

	t := &Transform{
		family:     family,
		levels:     levels,
		analysisLo: make([]*atrous, levels),
		analysisHi: make([]*atrous, levels),
		synthLo:    make([]*atrous, levels),
		synthHi:    make([]*atrous, levels),
		align:      make([]*delay.Line, levels),
		delay:      (m - 1) * ((1 << levels) - 1),
	}
	for l := 0; l < levels; l++ {
		stride := 1 << l
		t.analysisLo[l] = newAtrous(decLo, stride)
		t.analysisHi[l] = newAtrous(decHi, stride)
		t.synthLo[l] = newAtrous(recLo, stride)
		t.synthHi[l] = newAtrous(recHi, stride)

		// Round-trip delay of every deeper level.
		d := (m - 1) * ((1 << levels) - (1 << (l + 1)))
		if d > 0 {
			line, err := delay.New(d)
			if err != nil {
				return nil, err
			}
			t.align[l] = line
		}
	}
	return t, nil
}

// Decompose feeds one input sample and returns the coefficients of all
// scales.
func (t *Transform) Decompose(x float64) Coeffs {
	c := Coeffs{Details: make([]float64, t.levels)}
	t.DecomposeTo(&c, x)
	return c
}

// DecomposeTo is Decompose writing into an existing Coeffs value, reusing
// its Details slice when it has the right length.
func (t *Transform) DecomposeTo(c *Coeffs, x float64) {
	if len(c.Details) != t.levels {
		c.Details = make([]float64, t.levels)
	}
	a := x
	for l := 0; l < t.levels; l++ {
		c.Details[l] = t.analysisHi[l].process(a)
		a = t.analysisLo[l].process(a)
	}
	c.Approx = a
}

// Reconstruct consumes one set of (possibly modified) coefficients and
// returns one output sample. After Delay() samples the output reproduces the
// corresponding input exactly when the coefficients are unmodified.
func (t *Transform) Reconstruct(c Coeffs) float64 {
	last := t.levels - 1
	acc := (t.synthLo[last].process(c.Approx) + t.synthHi[last].process(c.Details[last])) / 2
	for l := last - 1; l >= 0; l-- {
		d := c.Details[l]
		if t.align[l] != nil {
			d = t.align[l].Tick(d)
		}
		acc = (t.synthLo[l].process(acc) + t.synthHi[l].process(d)) / 2
	}
	return acc
}

// Delay returns the fixed round-trip delay in samples,
// (len-1) * (2^levels - 1).
func (t *Transform) Delay() int {
	return t.delay
}

// Levels returns the number of decomposition levels.
func (t *Transform) Levels() int {
	return t.levels
}

// Family returns the wavelet family.
func (t *Transform) Family() Family {
	return t.family
}

// Reset clears all filter and alignment state.
func (t *Transform) Reset() {
	for l := 0; l < t.levels; l++ {
		t.analysisLo[l].reset()
		t.analysisHi[l].reset()
		t.synthLo[l].reset()
		t.synthHi[l].reset()
		if t.align[l] != nil {
			t.align[l].Reset()
		}
	}
}
