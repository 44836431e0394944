// Package signal generates deterministic test signals: sines, noise and an
// ECG-like pulse train for exercising beat detection and artifact removal.
package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/design"
)

// Generator produces test signals at a fixed sample rate. The same seed
// yields the same samples.
type Generator struct {
	sampleRate float64
	rng        *rand.Rand
}

// NewGenerator creates a generator for the given sample rate and seed.
func NewGenerator(sampleRate float64, seed int64) (*Generator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("signal: sample rate must be positive, got %g", sampleRate)
	}
	return &Generator{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// SampleRate returns the generator sample rate in Hz.
func (g *Generator) SampleRate() float64 {
	return g.sampleRate
}

// Sine returns n samples of a sine at the given frequency and amplitude.
func (g *Generator) Sine(freq, amplitude float64, n int) ([]float64, error) {
	if freq <= 0 || freq >= g.sampleRate/2 {
		return nil, fmt.Errorf("signal: frequency %g Hz outside (0, %g)", freq, g.sampleRate/2)
	}
	out := make([]float64, n)
	w := 2 * math.Pi * freq / g.sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i))
	}
	return out, nil
}

// WhiteNoise returns n samples of uniform white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * (2*g.rng.Float64() - 1)
	}
	return out
}

// BandlimitedNoise returns n samples of white noise band-limited to
// [low, high] Hz with an order-4 Butterworth pair, normalized to the given
// peak amplitude. A rough surface-EMG stand-in.
func (g *Generator) BandlimitedNoise(low, high, amplitude float64, n int) ([]float64, error) {
	if low <= 0 || high <= low || high >= g.sampleRate/2 {
		return nil, fmt.Errorf("signal: band [%g, %g] Hz invalid for sample rate %g",
			low, high, g.sampleRate)
	}
	hpSec, err := design.ButterworthHighpass(low, 4, g.sampleRate)
	if err != nil {
		return nil, err
	}
	lpSec, err := design.ButterworthLowpass(high, 4, g.sampleRate)
	if err != nil {
		return nil, err
	}
	hp, err := biquad.NewChain(hpSec)
	if err != nil {
		return nil, err
	}
	lp, err := biquad.NewChain(lpSec)
	if err != nil {
		return nil, err
	}

	out := g.WhiteNoise(1, n)
	hp.ProcessBlockTo(out, out)
	lp.ProcessBlockTo(out, out)
	Normalize(out, amplitude)
	return out, nil
}

// ECGPulseTrain returns n samples of an ECG-like waveform at the given beat
// rate in Hz, composed of Gaussian P, Q, R, S and T deflections per cycle.
// The R peak sits at phase 0.32 of each cycle.
func (g *Generator) ECGPulseTrain(rate, amplitude float64, n int) ([]float64, error) {
	if rate <= 0 || rate >= g.sampleRate/2 {
		return nil, fmt.Errorf("signal: beat rate %g Hz invalid for sample rate %g",
			rate, g.sampleRate)
	}
	out := make([]float64, n)
	for i := range out {
		t := float64(i) * rate / g.sampleRate
		phase := t - math.Floor(t)
		v := 0.08*gauss(phase, 0.18, 0.030) -
			0.12*gauss(phase, 0.30, 0.010) +
			1.00*gauss(phase, 0.32, 0.008) -
			0.25*gauss(phase, 0.35, 0.012) +
			0.25*gauss(phase, 0.60, 0.060)
		out[i] = amplitude * v
	}
	return out, nil
}

func gauss(x, mu, sigma float64) float64 {
	d := (x - mu) / sigma
	return math.Exp(-0.5 * d * d)
}

// Normalize scales samples in place so the largest magnitude equals peak.
// All-zero input is left unchanged.
func Normalize(samples []float64, peak float64) {
	var maxAbs float64
	for _, x := range samples {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return
	}
	scale := peak / maxAbs
	for i := range samples {
		samples[i] *= scale
	}
}

// Add sums b into a element-wise. The slices must have equal length.
func Add(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("signal: length mismatch %d != %d", len(a), len(b))
	}
	for i := range a {
		a[i] += b[i]
	}
	return nil
}
