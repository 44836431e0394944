package biquad

import (
	"math"
	"math/cmplx"

	"github.com/openbiosig/semg-ecg-removal/dsp/core"
)

// Response evaluates the section transfer function at the normalized
// frequency freq/sampleRate (0..0.5).
func (s *Section) Response(normFreq float64) complex128 {
	w := 2 * math.Pi * normFreq
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(s.coeffs.B0, 0) + complex(s.coeffs.B1, 0)*z1 + complex(s.coeffs.B2, 0)*z2
	den := complex(1, 0) + complex(s.coeffs.A1, 0)*z1 + complex(s.coeffs.A2, 0)*z2
	return num / den
}

// Response evaluates the cascade transfer function at the normalized
// frequency freq/sampleRate (0..0.5), including the chain gain.
func (c *Chain) Response(normFreq float64) complex128 {
	h := complex(c.gain, 0)
	for _, s := range c.sections {
		h *= s.Response(normFreq)
	}
	return h
}

// MagnitudeDB returns the cascade magnitude response in dB at the normalized
// frequency freq/sampleRate (0..0.5).
func (c *Chain) MagnitudeDB(normFreq float64) float64 {
	return core.LinearToDB(cmplx.Abs(c.Response(normFreq)))
}
