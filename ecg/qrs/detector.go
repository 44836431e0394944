// Package qrs implements online QRS complex detection on a shaped envelope
// signal: an adaptive two-state machine in the Pan-Tompkins tradition, plus
// a Pipeline that bundles the shaping cascade, envelope follower and
// detector for raw channels.
package qrs

import (
	"fmt"

	"github.com/openbiosig/semg-ecg-removal/dsp/core"
)

// State is the detector state.
type State int

const (
	// Searching means the detector is waiting for a threshold crossing.
	Searching State = iota
	// Refractory means a beat was just detected and crossings are ignored
	// for the minimum R-R interval.
	Refractory
)

// Event is a detected heartbeat.
type Event struct {
	// Index is the sample index at which the detection fired, counted from
	// the first sample the detector consumed.
	Index int64
	// Channel is the channel the detector was configured for.
	Channel int
}

type detectorConfig struct {
	channel    int
	minRRSec   float64
	adaptRate  float64
	noiseRate  float64
	fraction   float64
	decay      float64
	missFactor float64
	learnSec   float64
}

func detectorDefaults() detectorConfig {
	return detectorConfig{
		minRRSec:   0.4,
		adaptRate:  0.125,
		noiseRate:  1.0 / 64,
		fraction:   0.25,
		decay:      0.9995,
		missFactor: 1.66,
		learnSec:   1,
	}
}

// Option modifies the detector configuration.
type Option func(*detectorConfig)

// WithChannel tags emitted events with the given channel index.
func WithChannel(ch int) Option {
	return func(c *detectorConfig) {
		if ch >= 0 {
			c.channel = ch
		}
	}
}

// WithMinRRInterval sets the minimum R-R interval in seconds. Detections
// closer than this are suppressed. Non-positive values are ignored.
func WithMinRRInterval(seconds float64) Option {
	return func(c *detectorConfig) {
		if seconds > 0 {
			c.minRRSec = seconds
		}
	}
}

// WithAdaptation sets the rate at which the signal level tracks detected
// peaks. Values outside (0, 1] are ignored.
func WithAdaptation(rate float64) Option {
	return func(c *detectorConfig) {
		if rate > 0 && rate <= 1 {
			c.adaptRate = rate
		}
	}
}

// WithThresholdFraction sets where between the noise and signal levels the
// detection threshold sits. Values outside (0, 1) are ignored.
func WithThresholdFraction(f float64) Option {
	return func(c *detectorConfig) {
		if f > 0 && f < 1 {
			c.fraction = f
		}
	}
}

// WithLearningTime sets the initial learning period in seconds during which
// the detector only seeds its levels. Negative values are ignored.
func WithLearningTime(seconds float64) Option {
	return func(c *detectorConfig) {
		if seconds >= 0 {
			c.learnSec = seconds
		}
	}
}

// Detector is the online beat detector. Feed it one envelope sample per
// Update call; it reports a detection at most once per minimum R-R interval.
//
// The signal level tracks detected peak heights, the noise level tracks the
// envelope between beats, and the threshold sits a configurable fraction of
// the way between them. When an expected beat fails to appear the signal
// level decays geometrically until detection resumes, so the detector
// recovers from sudden amplitude drops.
type Detector struct {
	cfg        detectorConfig
	sampleRate float64
	minRR      int
	learn      int

	state      State
	refractory int
	sinceLast  int
	peak       float64
	signal     float64
	noise      float64
	expectedRR float64
	learned    int
	haveBeat   bool
	idx        int64
}

// NewDetector creates a detector for the given sample rate.
func NewDetector(sampleRate float64, opts ...Option) (*Detector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("qrs: sample rate must be positive, got %g", sampleRate)
	}
	cfg := detectorDefaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	minRR := int(cfg.minRRSec * sampleRate)
	if minRR < 1 {
		minRR = 1
	}
	return &Detector{
		cfg:        cfg,
		sampleRate: sampleRate,
		minRR:      minRR,
		learn:      int(cfg.learnSec * sampleRate),
		sinceLast:  minRR, // no artificial lockout at stream start
		expectedRR: 0.75 * sampleRate,
	}, nil
}

// Update consumes one envelope sample. It returns the detection event and
// true when a beat fires. A non-finite sample holds the detector state
// entirely.
func (d *Detector) Update(v float64) (Event, bool) {
	if !core.IsFinite(v) {
		return Event{}, false
	}
	cur := d.idx
	d.idx++
	d.sinceLast++

	if d.learned < d.learn {
		d.learned++
		if v > d.signal {
			d.signal = v
		}
		d.noise += (v - d.noise) * d.cfg.noiseRate
		return Event{}, false
	}

	if d.state == Refractory {
		// Track the true peak of the beat; the crossing value underestimates
		// it and would drag the signal level down to the noise floor.
		if v > d.peak {
			d.peak = v
		}
		d.refractory--
		if d.refractory <= 0 {
			d.state = Searching
			d.signal = d.cfg.adaptRate*d.peak + (1-d.cfg.adaptRate)*d.signal
		}
		return Event{}, false
	}

	thr := d.noise + d.cfg.fraction*(d.signal-d.noise)
	if v > thr && d.sinceLast >= d.minRR {
		d.peak = v
		if d.haveBeat {
			d.expectedRR = 0.875*d.expectedRR + 0.125*float64(d.sinceLast)
		}
		d.haveBeat = true
		d.sinceLast = 0
		d.state = Refractory
		d.refractory = d.minRR
		return Event{Index: cur, Channel: d.cfg.channel}, true
	}

	d.noise = d.cfg.noiseRate*v + (1-d.cfg.noiseRate)*d.noise
	if float64(d.sinceLast) > d.cfg.missFactor*d.expectedRR {
		d.signal *= d.cfg.decay
		if d.signal < d.noise {
			d.signal = d.noise
		}
	}
	return Event{}, false
}

// State returns the current detector state.
func (d *Detector) State() State {
	return d.state
}

// Threshold returns the current detection threshold.
func (d *Detector) Threshold() float64 {
	return d.noise + d.cfg.fraction*(d.signal-d.noise)
}

// SignalLevel returns the adaptive signal level.
func (d *Detector) SignalLevel() float64 {
	return d.signal
}

// NoiseLevel returns the adaptive noise level.
func (d *Detector) NoiseLevel() float64 {
	return d.noise
}

// MinRR returns the minimum R-R interval in samples.
func (d *Detector) MinRR() int {
	return d.minRR
}

// Channel returns the configured channel index.
func (d *Detector) Channel() int {
	return d.cfg.channel
}

// Reset restores the detector to its initial state.
func (d *Detector) Reset() {
	d.state = Searching
	d.refractory = 0
	d.sinceLast = d.minRR
	d.peak = 0
	d.signal = 0
	d.noise = 0
	d.expectedRR = 0.75 * d.sampleRate
	d.learned = 0
	d.haveBeat = false
	d.idx = 0
}
