// Package semgfilter removes cardiac artifacts from multichannel surface
// EMG streams in real time. A session detects heartbeats on the clearest
// ECG channel, transforms every channel with a causal stationary wavelet
// transform, suppresses beat-locked coefficients and reconstructs the
// denoised signals together with their envelopes.
//
// The session is single-writer: all methods must be called from one
// goroutine.
package semgfilter

import (
	"fmt"

	"github.com/openbiosig/semg-ecg-removal/denoise"
	"github.com/openbiosig/semg-ecg-removal/dsp/core"
	"github.com/openbiosig/semg-ecg-removal/dsp/envelope"
	"github.com/openbiosig/semg-ecg-removal/dsp/wavelet"
	"github.com/openbiosig/semg-ecg-removal/ecg/heartrate"
	"github.com/openbiosig/semg-ecg-removal/ecg/qrs"
	"github.com/openbiosig/semg-ecg-removal/ecg/selector"
)

// Filter is an online artifact-removal session with fixed channel count and
// configuration.
type Filter struct {
	cfg        config
	channels   int
	candidates []int

	swt      *wavelet.MultiTransform
	gate     *denoise.Gate
	pipeline *qrs.Pipeline // nil while calibrating
	hr       *heartrate.Estimator
	envs     []*envelope.Follower
	sel      *selector.Selector

	best        int
	calibrating bool

	idx        int64
	lastFinite []float64
	invalid    uint64
	beats      []qrs.Event

	frame     []float64
	candFrame []float64
	coeffs    wavelet.Coeffs
}

// New creates a session for the given channel count. Invalid configuration
// returns an error and no session.
func New(channels int, opts ...Option) (*Filter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("semgfilter: channels must be at least 1, got %d", channels)
	}
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, fmt.Errorf("semgfilter: sample rate must be positive, got %g", cfg.sampleRate)
	}
	if cfg.calibrationSec < 0 {
		return nil, fmt.Errorf("semgfilter: calibration time must not be negative, got %g s", cfg.calibrationSec)
	}
	if cfg.envelopeWindow == 0 {
		cfg.envelopeWindow = int(cfg.sampleRate / 4)
	}
	if cfg.envelopeWindow < 1 {
		return nil, fmt.Errorf("semgfilter: envelope window must be at least 1 sample, got %d", cfg.envelopeWindow)
	}
	if cfg.detectionDelay == 0 {
		// Half the detector's envelope window approximates the lag between
		// an R peak and its detection.
		cfg.detectionDelay = int(0.075 * cfg.sampleRate)
	}
	if cfg.ecgChannels == nil {
		cfg.ecgChannels = make([]int, channels)
		for i := range cfg.ecgChannels {
			cfg.ecgChannels[i] = i
		}
	}
	seen := make(map[int]bool, len(cfg.ecgChannels))
	for _, ch := range cfg.ecgChannels {
		if ch < 0 || ch >= channels {
			return nil, fmt.Errorf("semgfilter: ECG candidate channel %d outside 0..%d", ch, channels-1)
		}
		if seen[ch] {
			return nil, fmt.Errorf("semgfilter: ECG candidate channel %d given twice", ch)
		}
		seen[ch] = true
	}
	if len(cfg.ecgChannels) == 0 {
		return nil, fmt.Errorf("semgfilter: need at least one ECG candidate channel")
	}

	f := &Filter{
		cfg:        cfg,
		channels:   channels,
		candidates: cfg.ecgChannels,
		lastFinite: make([]float64, channels),
		frame:      make([]float64, channels),
		candFrame:  make([]float64, len(cfg.ecgChannels)),
	}

	var err error
	f.swt, err = wavelet.NewMulti(cfg.family, cfg.levels, channels)
	if err != nil {
		return nil, err
	}

	gateOpts := []denoise.Option{
		denoise.WithThresholdFactors(cfg.gateFactor, cfg.passFactor),
		denoise.WithAttenuation(cfg.attenuation),
		denoise.WithDetectionDelay(cfg.detectionDelay),
	}
	if cfg.suppressLevels != nil {
		gateOpts = append(gateOpts, denoise.WithTargetLevels(cfg.suppressLevels...))
	}
	if cfg.gateWidths != nil {
		gateOpts = append(gateOpts, denoise.WithGateWidths(cfg.gateWidths...))
	}
	if cfg.medianWindow != 0 {
		gateOpts = append(gateOpts, denoise.WithMedianWindow(cfg.medianWindow))
	}
	if cfg.dropApprox {
		gateOpts = append(gateOpts, denoise.WithApproximationDrop())
	}
	f.gate, err = denoise.New(cfg.sampleRate, channels, cfg.levels, gateOpts...)
	if err != nil {
		return nil, err
	}

	f.hr, err = heartrate.New(cfg.sampleRate)
	if err != nil {
		return nil, err
	}

	f.envs = make([]*envelope.Follower, channels)
	for ch := range f.envs {
		f.envs[ch], err = envelope.New(cfg.envelopeWindow)
		if err != nil {
			return nil, err
		}
	}

	if err := f.startDetection(); err != nil {
		return nil, err
	}
	return f, nil
}

// startDetection either enters the calibration phase or locks onto the only
// possible candidate right away.
func (f *Filter) startDetection() error {
	if len(f.candidates) > 1 && f.cfg.calibrationSec > 0 {
		sel, err := selector.New(len(f.candidates), f.cfg.sampleRate, f.cfg.calibrationSec)
		if err != nil {
			return err
		}
		f.sel = sel
		f.calibrating = true
		f.best = f.candidates[0]
		f.pipeline = nil
		return nil
	}
	f.sel = nil
	f.calibrating = false
	return f.lockOn(f.candidates[0])
}

func (f *Filter) lockOn(channel int) error {
	p, err := qrs.NewPipeline(f.cfg.sampleRate, channel,
		qrs.WithMinRRInterval(f.cfg.minRRSec),
		qrs.WithAdaptation(f.cfg.adaptRate),
	)
	if err != nil {
		return err
	}
	f.pipeline = p
	f.best = channel
	return nil
}

// ProcessBlock consumes one block of samples, indexed [channel][sample], and
// returns the denoised block and the envelope block in the same layout. All
// channels must have equal length; a mismatched layout returns
// ErrChannelMismatch and leaves the session untouched.
//
// Non-finite input samples are replaced by the channel's last finite value
// and counted; processing continues.
func (f *Filter) ProcessBlock(block [][]float64) (denoised, envelopes [][]float64, err error) {
	if len(block) != f.channels {
		return nil, nil, fmt.Errorf("%w: got %d channels, want %d",
			ErrChannelMismatch, len(block), f.channels)
	}
	n := 0
	if f.channels > 0 {
		n = len(block[0])
	}
	for ch := range block {
		if len(block[ch]) != n {
			return nil, nil, fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrChannelMismatch, ch, len(block[ch]), n)
		}
	}

	denoised = make([][]float64, f.channels)
	envelopes = make([][]float64, f.channels)
	for ch := range denoised {
		denoised[ch] = make([]float64, n)
		envelopes[ch] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for ch := 0; ch < f.channels; ch++ {
			v := block[ch][i]
			if !core.IsFinite(v) {
				f.invalid++
				v = f.lastFinite[ch]
			} else {
				f.lastFinite[ch] = v
			}
			f.frame[ch] = v
		}
		f.processSample(denoised, envelopes, i)
		f.idx++
	}
	return denoised, envelopes, nil
}

func (f *Filter) processSample(denoised, envelopes [][]float64, i int) {
	if f.calibrating {
		for i, ch := range f.candidates {
			f.candFrame[i] = f.frame[ch]
		}
		if best, done := f.sel.Push(f.candFrame); done {
			// Errors cannot occur here: the configuration was already
			// validated when the session was built.
			_ = f.lockOn(f.candidates[best])
			f.calibrating = false
		}
		return // outputs stay zero during calibration
	}

	_, beat := f.pipeline.Update(f.frame[f.best])
	if beat {
		f.beats = append(f.beats, qrs.Event{Index: f.idx, Channel: f.best})
	}
	rr := f.hr.Update(beat)
	f.gate.Advance(beat, rr)

	for ch := 0; ch < f.channels; ch++ {
		t := f.swt.Channel(ch)
		t.DecomposeTo(&f.coeffs, f.frame[ch])
		f.gate.Apply(ch, &f.coeffs)
		y := t.Reconstruct(f.coeffs)
		denoised[ch][i] = y
		envelopes[ch][i] = f.envs[ch].Update(y)
	}
}

// Channels returns the session channel count.
func (f *Filter) Channels() int {
	return f.channels
}

// SampleRate returns the session sample rate in Hz.
func (f *Filter) SampleRate() float64 {
	return f.cfg.sampleRate
}

// Delay returns the fixed latency in samples between an input sample and the
// denoised output that corresponds to it.
func (f *Filter) Delay() int {
	return f.swt.Delay()
}

// Calibrating reports whether the session is still in its best-channel
// calibration phase.
func (f *Filter) Calibrating() bool {
	return f.calibrating
}

// BestChannel returns the channel beats are detected on. During calibration
// it returns the provisional first candidate.
func (f *Filter) BestChannel() int {
	return f.best
}

// HeartRate returns the current heart rate estimate in beats per minute.
func (f *Filter) HeartRate() float64 {
	return f.hr.BPM()
}

// Beats returns a copy of all detected beats, as absolute sample indices
// since the session started.
func (f *Filter) Beats() []qrs.Event {
	out := make([]qrs.Event, len(f.beats))
	copy(out, f.beats)
	return out
}

// InvalidSamples returns how many non-finite input samples were replaced.
func (f *Filter) InvalidSamples() uint64 {
	return f.invalid
}

// Reset restores the session to its freshly constructed state, including a
// new calibration phase when one is configured.
func (f *Filter) Reset() {
	f.swt.Reset()
	f.gate.Reset()
	f.hr.Reset()
	for _, e := range f.envs {
		e.Reset()
	}
	for i := range f.lastFinite {
		f.lastFinite[i] = 0
	}
	f.idx = 0
	f.invalid = 0
	f.beats = nil
	// Configuration was validated at construction; recreating the selector
	// and pipeline cannot fail.
	_ = f.startDetection()
}
