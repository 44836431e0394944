// Package denoise suppresses cardiac artifacts in stationary wavelet
// coefficients. Around each detected beat (and the predicted next one) a
// per-scale gate lowers the suppression threshold; coefficients whose
// magnitude exceeds a running-median estimate of the scale's background are
// attenuated.
package denoise

import (
	"fmt"
	"math"

	"github.com/openbiosig/semg-ecg-removal/dsp/wavelet"
)

type config struct {
	targetLevels   []int
	gateWidths     []int
	gateFactor     float64
	passFactor     float64
	attenuation    float64
	medianWindow   int
	detectionDelay int
	dropApprox     bool
}

// Option modifies the gate configuration.
type Option func(*config)

// WithTargetLevels restricts suppression to the given detail levels
// (1 = finest). The default is every level.
func WithTargetLevels(levels ...int) Option {
	return func(c *config) {
		c.targetLevels = levels
	}
}

// WithGateWidths sets the gate window width in samples per target level, in
// the order given to WithTargetLevels. The default is level * 0.2 * rate.
func WithGateWidths(widths ...int) Option {
	return func(c *config) {
		c.gateWidths = widths
	}
}

// WithThresholdFactors sets the median multipliers inside and outside the
// gate window.
func WithThresholdFactors(inGate, outside float64) Option {
	return func(c *config) {
		c.gateFactor = inGate
		c.passFactor = outside
	}
}

// WithAttenuation sets the factor applied to suppressed coefficients, 0 for
// full removal.
func WithAttenuation(a float64) Option {
	return func(c *config) {
		c.attenuation = a
	}
}

// WithMedianWindow sets the running-median window in samples.
func WithMedianWindow(samples int) Option {
	return func(c *config) {
		c.medianWindow = samples
	}
}

// WithDetectionDelay sets how many samples a detection lags the true beat,
// so gates are placed around the beat itself.
func WithDetectionDelay(samples int) Option {
	return func(c *config) {
		c.detectionDelay = samples
	}
}

// WithApproximationDrop zeroes the approximation band instead of passing it
// through, removing everything below the coarsest detail scale.
func WithApproximationDrop() Option {
	return func(c *config) {
		c.dropApprox = true
	}
}

// Gate is the suppression stage for all channels of one session. Advance it
// once per sample, then Apply it to each channel's coefficients for that
// sample.
type Gate struct {
	cfg    config
	levels int

	// widths[level-1] is the gate width for that level, 0 if untargeted.
	widths  []int
	medians [][]*runningMedian

	phase   int
	rr      int
	priorRR int
}

// New creates a gate for the given sample rate, channel count and number of
// wavelet levels.
func New(sampleRate float64, channels, levels int, opts ...Option) (*Gate, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("denoise: sample rate must be positive, got %g", sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("denoise: channels must be at least 1, got %d", channels)
	}
	if levels < 1 {
		return nil, fmt.Errorf("denoise: levels must be at least 1, got %d", levels)
	}

	cfg := config{
		gateFactor:     4,
		passFactor:     10,
		medianWindow:   int(sampleRate / 4),
		detectionDelay: int(0.15 * sampleRate),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.targetLevels == nil {
		cfg.targetLevels = make([]int, levels)
		for i := range cfg.targetLevels {
			cfg.targetLevels[i] = i + 1
		}
	}
	if cfg.gateWidths == nil {
		cfg.gateWidths = make([]int, len(cfg.targetLevels))
		for i, l := range cfg.targetLevels {
			cfg.gateWidths[i] = int(float64(l) * 0.2 * sampleRate)
		}
	}
	if len(cfg.gateWidths) != len(cfg.targetLevels) {
		return nil, fmt.Errorf("denoise: %d gate widths for %d target levels",
			len(cfg.gateWidths), len(cfg.targetLevels))
	}
	if cfg.gateFactor <= 0 || cfg.passFactor < cfg.gateFactor {
		return nil, fmt.Errorf("denoise: threshold factors must satisfy 0 < inGate <= outside, got %g and %g",
			cfg.gateFactor, cfg.passFactor)
	}
	if cfg.attenuation < 0 || cfg.attenuation > 1 {
		return nil, fmt.Errorf("denoise: attenuation must be in [0, 1], got %g", cfg.attenuation)
	}
	if cfg.medianWindow < 1 {
		return nil, fmt.Errorf("denoise: median window must be at least 1 sample, got %d", cfg.medianWindow)
	}
	if cfg.detectionDelay < 0 {
		return nil, fmt.Errorf("denoise: detection delay must not be negative, got %d", cfg.detectionDelay)
	}

	widths := make([]int, levels)
	for i, l := range cfg.targetLevels {
		if l < 1 || l > levels {
			return nil, fmt.Errorf("denoise: target level %d outside 1..%d", l, levels)
		}
		if widths[l-1] != 0 {
			return nil, fmt.Errorf("denoise: target level %d given twice", l)
		}
		if cfg.gateWidths[i] < 2 {
			return nil, fmt.Errorf("denoise: gate width for level %d must be at least 2 samples, got %d",
				l, cfg.gateWidths[i])
		}
		widths[l-1] = cfg.gateWidths[i]
	}

	medians := make([][]*runningMedian, channels)
	for ch := range medians {
		medians[ch] = make([]*runningMedian, levels)
		for li, w := range widths {
			if w > 0 {
				medians[ch][li] = newRunningMedian(cfg.medianWindow)
			}
		}
	}

	prior := int(0.75 * sampleRate)
	return &Gate{
		cfg:     cfg,
		levels:  levels,
		widths:  widths,
		medians: medians,
		rr:      prior,
		priorRR: prior,
	}, nil
}

// Advance moves the beat phase forward by one sample. Pass beat true on
// samples where a detection fired and the current R-R estimate in samples.
// Call it exactly once per sample, before Apply.
func (g *Gate) Advance(beat bool, rr int) {
	if rr > 0 {
		g.rr = rr
	}
	if beat {
		// The detection lags the beat; place the phase where the beat was.
		g.phase = g.cfg.detectionDelay
	} else {
		g.phase++
	}
	if g.phase >= g.rr {
		// Predicted beat reached without a detection; stay phase-locked.
		g.phase = 0
	}
}

// InGate reports whether the current sample lies within the gate window of
// the given detail level (1 = finest). Untargeted levels are never gated.
func (g *Gate) InGate(level int) bool {
	if level < 1 || level > g.levels {
		return false
	}
	w := g.widths[level-1]
	if w == 0 {
		return false
	}
	return g.phase <= w/2-1 || g.phase >= g.rr-w/2
}

// Apply suppresses the current sample's coefficients for one channel in
// place. Details of untargeted levels and, by default, the approximation
// pass through unmodified.
func (g *Gate) Apply(ch int, c *wavelet.Coeffs) {
	for li, w := range g.widths {
		if w == 0 {
			continue
		}
		d := c.Details[li]
		med := g.medians[ch][li].push(math.Abs(d))
		factor := g.cfg.passFactor
		if g.InGate(li + 1) {
			factor = g.cfg.gateFactor
		}
		if math.Abs(d) >= factor*med {
			c.Details[li] = d * g.cfg.attenuation
		}
	}
	if g.cfg.dropApprox {
		c.Approx = 0
	}
}

// Phase returns the number of samples since the (delay-corrected) last beat.
func (g *Gate) Phase() int {
	return g.phase
}

// Reset clears beat phase and background estimates.
func (g *Gate) Reset() {
	g.phase = 0
	g.rr = g.priorRR
	for _, chm := range g.medians {
		for _, m := range chm {
			if m != nil {
				m.reset()
			}
		}
	}
}
