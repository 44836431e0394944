package semgfilter

import (
	"github.com/openbiosig/semg-ecg-removal/dsp/wavelet"
)

type config struct {
	sampleRate     float64
	family         wavelet.Family
	levels         int
	minRRSec       float64
	adaptRate      float64
	envelopeWindow int
	calibrationSec float64
	ecgChannels    []int

	suppressLevels []int
	gateWidths     []int
	gateFactor     float64
	passFactor     float64
	attenuation    float64
	medianWindow   int
	detectionDelay int
	dropApprox     bool
}

func defaults() config {
	return config{
		sampleRate:     1024,
		family:         wavelet.DB2,
		levels:         3,
		minRRSec:       0.4,
		adaptRate:      0.125,
		calibrationSec: 5,
		gateFactor:     4,
		passFactor:     10,
	}
}

// Option modifies the session configuration.
type Option func(*config)

// WithSampleRate sets the sample rate in Hz. Default 1024.
func WithSampleRate(rate float64) Option {
	return func(c *config) { c.sampleRate = rate }
}

// WithWavelet sets the wavelet family of the suppression transform.
// Default db2.
func WithWavelet(f wavelet.Family) Option {
	return func(c *config) { c.family = f }
}

// WithLevels sets the number of wavelet decomposition levels. Default 3.
func WithLevels(n int) Option {
	return func(c *config) { c.levels = n }
}

// WithMinRRInterval sets the minimum R-R interval in seconds enforced by the
// beat detector. Default 0.4.
func WithMinRRInterval(seconds float64) Option {
	return func(c *config) { c.minRRSec = seconds }
}

// WithThresholdAdaptation sets the detector's peak adaptation rate.
// Default 0.125.
func WithThresholdAdaptation(rate float64) Option {
	return func(c *config) { c.adaptRate = rate }
}

// WithEnvelopeWindow sets the output envelope window in samples. Default is
// a quarter second.
func WithEnvelopeWindow(samples int) Option {
	return func(c *config) { c.envelopeWindow = samples }
}

// WithCalibrationTime sets the initial best-channel calibration duration in
// seconds; 0 disables calibration and uses the first candidate channel.
// Default 5. Sessions with a single candidate never calibrate.
func WithCalibrationTime(seconds float64) Option {
	return func(c *config) { c.calibrationSec = seconds }
}

// WithECGChannels restricts which channels are candidates for beat
// detection. All channels are still denoised. Default: every channel.
func WithECGChannels(channels ...int) Option {
	return func(c *config) { c.ecgChannels = append([]int{}, channels...) }
}

// WithSuppressedLevels restricts suppression to the given detail levels
// (1 = finest). Default: every level.
func WithSuppressedLevels(levels ...int) Option {
	return func(c *config) { c.suppressLevels = levels }
}

// WithGateWidths sets per-level gate window widths in samples, matching the
// order of WithSuppressedLevels.
func WithGateWidths(widths ...int) Option {
	return func(c *config) { c.gateWidths = widths }
}

// WithThresholdFactors sets the suppression median multipliers inside and
// outside the beat gate. Defaults 4 and 10.
func WithThresholdFactors(inGate, outside float64) Option {
	return func(c *config) {
		c.gateFactor = inGate
		c.passFactor = outside
	}
}

// WithAttenuation sets the factor applied to suppressed coefficients,
// 0 (the default) for full removal.
func WithAttenuation(a float64) Option {
	return func(c *config) { c.attenuation = a }
}

// WithMedianWindow sets the suppression background window in samples.
// Default is a quarter second.
func WithMedianWindow(samples int) Option {
	return func(c *config) { c.medianWindow = samples }
}

// WithDetectionDelay overrides the assumed lag in samples between a beat and
// its detection, used to place suppression gates.
func WithDetectionDelay(samples int) Option {
	return func(c *config) { c.detectionDelay = samples }
}

// WithApproximationDrop zeroes the wavelet approximation band, removing all
// content below the coarsest detail scale. Useful when that band carries
// only cardiac and baseline energy.
func WithApproximationDrop() Option {
	return func(c *config) { c.dropApprox = true }
}
