// Package bank implements a fixed three-layer causal filter cascade that
// shapes a raw biopotential channel for beat detection: baseline-wander
// rejection, QRS band emphasis and a smoothed derivative.
package bank

import (
	"fmt"

	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/design"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/fir"
)

type config struct {
	baselineHz    float64
	baselineOrder int
	lowHz         float64
	highHz        float64
	bandOrder     int
}

func defaults() config {
	return config{
		baselineHz:    1,
		baselineOrder: 2,
		lowHz:         8,
		highHz:        20,
		bandOrder:     4,
	}
}

// Option modifies the cascade configuration.
type Option func(*config)

// WithBaseline sets the baseline-rejection highpass cutoff in Hz.
// Non-positive values are ignored.
func WithBaseline(freq float64) Option {
	return func(c *config) {
		if freq > 0 {
			c.baselineHz = freq
		}
	}
}

// WithBand sets the QRS emphasis band edges in Hz. The option is ignored
// unless 0 < low < high.
func WithBand(low, high float64) Option {
	return func(c *config) {
		if low > 0 && high > low {
			c.lowHz = low
			c.highHz = high
		}
	}
}

// Cascade is the three-layer shaping filter. The layer order is fixed:
// baseline highpass, band emphasis (highpass + lowpass Butterworth pair),
// five-point derivative.
type Cascade struct {
	baseline *biquad.Chain
	bandHigh *biquad.Chain
	bandLow  *biquad.Chain
	deriv    *fir.Filter
}

// New creates the cascade for the given sample rate.
func New(sampleRate float64, opts ...Option) (*Cascade, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("bank: sample rate must be positive, got %g", sampleRate)
	}
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}

	baseSec, err := design.ButterworthHighpass(cfg.baselineHz, cfg.baselineOrder, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("bank: baseline filter: %w", err)
	}
	highSec, err := design.ButterworthHighpass(cfg.lowHz, cfg.bandOrder, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("bank: band highpass: %w", err)
	}
	lowSec, err := design.ButterworthLowpass(cfg.highHz, cfg.bandOrder, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("bank: band lowpass: %w", err)
	}

	baseline, err := biquad.NewChain(baseSec)
	if err != nil {
		return nil, err
	}
	bandHigh, err := biquad.NewChain(highSec)
	if err != nil {
		return nil, err
	}
	bandLow, err := biquad.NewChain(lowSec)
	if err != nil {
		return nil, err
	}
	// Five-point derivative, (1/8)(2x[n] + x[n-1] - x[n-3] - 2x[n-4]).
	deriv, err := fir.New([]float64{0.25, 0.125, 0, -0.125, -0.25})
	if err != nil {
		return nil, err
	}

	return &Cascade{
		baseline: baseline,
		bandHigh: bandHigh,
		bandLow:  bandLow,
		deriv:    deriv,
	}, nil
}

// ProcessSample runs a single sample through all three layers.
func (c *Cascade) ProcessSample(x float64) float64 {
	y := c.baseline.ProcessSample(x)
	y = c.bandHigh.ProcessSample(y)
	y = c.bandLow.ProcessSample(y)
	return c.deriv.ProcessSample(y)
}

// ProcessBlockTo filters in into out sample by sample. The slices may alias.
func (c *Cascade) ProcessBlockTo(out, in []float64) {
	for i, x := range in {
		out[i] = c.ProcessSample(x)
	}
}

// Reset clears the state of all layers.
func (c *Cascade) Reset() {
	c.baseline.Reset()
	c.bandHigh.Reset()
	c.bandLow.Reset()
	c.deriv.Reset()
}
