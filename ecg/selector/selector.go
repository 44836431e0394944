// Package selector picks the channel with the clearest cardiac activity from
// a calibration block, by running a throwaway detection pipeline per
// candidate and scoring detected beats.
package selector

import (
	"fmt"
	"math"

	"github.com/openbiosig/semg-ecg-removal/dsp/core"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/design"
	"github.com/openbiosig/semg-ecg-removal/ecg/qrs"
)

// Score is the per-channel quality assessment after calibration.
type Score struct {
	Channel int
	// PeakHeight is the mean absolute R-peak amplitude of the
	// baseline-filtered signal at detections.
	PeakHeight float64
	// Polarity counts the beats sharing the dominant peak polarity.
	Polarity float64
	// Regularity is 1/(1+cv) of the detected R-R intervals, 1 for a
	// perfectly steady rhythm.
	Regularity float64
	// Value is the combined score the selection maximizes.
	Value float64
}

// Best returns the channel of the highest-Value score. Ties resolve to the
// lowest channel index; an empty slice yields 0. The function is pure: equal
// inputs always produce equal outputs.
func Best(scores []Score) int {
	best := 0
	bestValue := math.Inf(-1)
	for _, s := range scores {
		if s.Value > bestValue || (s.Value == bestValue && s.Channel < best) {
			best = s.Channel
			bestValue = s.Value
		}
	}
	if bestValue == math.Inf(-1) {
		return 0
	}
	return best
}

type channelState struct {
	pipeline *qrs.Pipeline
	baseline *biquad.Chain

	recent []float64 // baseline-filtered history around a detection
	pos    int

	heights  []float64
	posPeaks int
	negPeaks int
	lastBeat int64
	rr       []float64
}

// Selector scores candidate channels over a fixed calibration duration.
// Feed it one frame per sample via Push; after the duration it reports the
// best channel.
type Selector struct {
	sampleRate float64
	duration   int
	seen       int
	channels   []*channelState
	scores     []Score
	best       int
	done       bool
}

// New creates a selector for the given number of candidate channels and
// calibration duration in seconds.
func New(channels int, sampleRate, duration float64) (*Selector, error) {
	if channels < 1 {
		return nil, fmt.Errorf("selector: channels must be at least 1, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("selector: sample rate must be positive, got %g", sampleRate)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("selector: duration must be positive, got %g s", duration)
	}
	s := &Selector{
		sampleRate: sampleRate,
		duration:   int(duration * sampleRate),
		channels:   make([]*channelState, channels),
	}
	if s.duration < 1 {
		s.duration = 1
	}
	win := int(0.2 * sampleRate)
	if win < 2 {
		win = 2
	}
	for i := range s.channels {
		pipeline, err := qrs.NewPipeline(sampleRate, i)
		if err != nil {
			return nil, err
		}
		sections, err := design.ButterworthHighpass(1, 2, sampleRate)
		if err != nil {
			return nil, err
		}
		baseline, err := biquad.NewChain(sections)
		if err != nil {
			return nil, err
		}
		s.channels[i] = &channelState{
			pipeline: pipeline,
			baseline: baseline,
			recent:   make([]float64, win),
			lastBeat: -1,
		}
	}
	return s, nil
}

// Push consumes one frame, one value per candidate channel. It returns the
// selected channel and true once the calibration duration has elapsed;
// further calls keep returning the cached result.
func (s *Selector) Push(frame []float64) (int, bool) {
	if s.done {
		return s.best, true
	}
	for i, c := range s.channels {
		x := frame[i]
		if !core.IsFinite(x) {
			x = c.recent[c.pos] // hold the previous filtered value
		} else {
			x = c.baseline.ProcessSample(x)
		}
		c.pos++
		if c.pos >= len(c.recent) {
			c.pos = 0
		}
		c.recent[c.pos] = x

		if e, ok := c.pipeline.Update(frame[i]); ok {
			c.record(e)
		}
	}
	s.seen++
	if s.seen >= s.duration {
		s.finish()
	}
	return s.best, s.done
}

// record scores one detection: the extreme of the recent filtered history
// approximates the R peak that triggered it.
func (c *channelState) record(e qrs.Event) {
	extreme := 0.0
	for _, v := range c.recent {
		if math.Abs(v) > math.Abs(extreme) {
			extreme = v
		}
	}
	c.heights = append(c.heights, math.Abs(extreme))
	if extreme >= 0 {
		c.posPeaks++
	} else {
		c.negPeaks++
	}
	if c.lastBeat >= 0 {
		c.rr = append(c.rr, float64(e.Index-c.lastBeat))
	}
	c.lastBeat = e.Index
}

func (s *Selector) finish() {
	raw := make([]Score, len(s.channels))
	var maxHeight, maxPolarity, maxRegularity float64
	for i, c := range s.channels {
		sc := Score{Channel: i}
		if len(c.heights) > 0 {
			var sum float64
			for _, h := range c.heights {
				sum += h
			}
			sc.PeakHeight = sum / float64(len(c.heights))
		}
		sc.Polarity = float64(max(c.posPeaks, c.negPeaks))
		sc.Regularity = regularity(c.rr)

		maxHeight = math.Max(maxHeight, sc.PeakHeight)
		maxPolarity = math.Max(maxPolarity, sc.Polarity)
		maxRegularity = math.Max(maxRegularity, sc.Regularity)
		raw[i] = sc
	}
	for i := range raw {
		raw[i].Value = 2.0*norm(raw[i].PeakHeight, maxHeight) +
			2.1*norm(raw[i].Polarity, maxPolarity) +
			1.0*norm(raw[i].Regularity, maxRegularity)
	}
	s.scores = raw
	s.best = Best(raw)
	s.done = true
}

func norm(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}

func regularity(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	var mean float64
	for _, v := range rr {
		mean += v
	}
	mean /= float64(len(rr))
	if mean <= 0 {
		return 0
	}
	var variance float64
	for _, v := range rr {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(rr))
	cv := math.Sqrt(variance) / mean
	return 1 / (1 + cv)
}

// Done reports whether the calibration duration has elapsed.
func (s *Selector) Done() bool {
	return s.done
}

// Scores returns the per-channel scores, or nil before calibration finished.
func (s *Selector) Scores() []Score {
	if !s.done {
		return nil
	}
	out := make([]Score, len(s.scores))
	copy(out, s.scores)
	return out
}

// Channels returns the number of candidate channels.
func (s *Selector) Channels() int {
	return len(s.channels)
}
