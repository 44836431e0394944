package qrs

import (
	"math"

	"github.com/openbiosig/semg-ecg-removal/dsp/core"
	"github.com/openbiosig/semg-ecg-removal/dsp/envelope"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/bank"
)

// Pipeline detects beats directly on a raw channel: shaping cascade,
// squared-envelope follower and detector in series. A non-finite input
// sample is replaced by the last finite one so the recursive filters never
// ingest it.
type Pipeline struct {
	shaper  *bank.Cascade
	env     *envelope.Follower
	det     *Detector
	lastRaw float64
}

// NewPipeline creates a detection pipeline for one raw channel. The detector
// options apply to the embedded detector; the shaping cascade and the
// envelope window (150 ms, squared rectification) use their defaults.
func NewPipeline(sampleRate float64, channel int, opts ...Option) (*Pipeline, error) {
	shaper, err := bank.New(sampleRate)
	if err != nil {
		return nil, err
	}
	win := int(0.15 * sampleRate)
	if win < 1 {
		win = 1
	}
	env, err := envelope.New(win, envelope.WithRectifier(envelope.RectifySquare))
	if err != nil {
		return nil, err
	}
	det, err := NewDetector(sampleRate, append(opts, WithChannel(channel))...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{shaper: shaper, env: env, det: det}, nil
}

// Update consumes one raw sample and reports a detection when a beat fires.
func (p *Pipeline) Update(raw float64) (Event, bool) {
	if !core.IsFinite(raw) {
		raw = p.lastRaw
	} else {
		p.lastRaw = raw
	}
	shaped := p.shaper.ProcessSample(raw)
	return p.det.Update(p.env.Update(shaped))
}

// Detector returns the embedded detector.
func (p *Pipeline) Detector() *Detector {
	return p.det
}

// Delay returns the approximate latency in samples between the R peak in the
// raw signal and the detection, dominated by the envelope window.
func (p *Pipeline) Delay() int {
	return int(math.Round(float64(p.env.Window()) / 2))
}

// Reset clears all pipeline state.
func (p *Pipeline) Reset() {
	p.shaper.Reset()
	p.env.Reset()
	p.det.Reset()
	p.lastRaw = 0
}
