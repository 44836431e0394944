// Package envelope implements a causal envelope follower: rectification
// followed by a moving average over a configurable window.
package envelope

import "fmt"

// Rectifier selects how input samples are rectified before averaging.
type Rectifier int

const (
	// RectifyAbs uses the absolute value of the input.
	RectifyAbs Rectifier = iota
	// RectifySquare uses the squared input, emphasizing large deflections.
	RectifySquare
)

// Option modifies the follower configuration.
type Option func(*Follower)

// WithRectifier selects the rectification mode. Unknown values are ignored.
func WithRectifier(r Rectifier) Option {
	return func(f *Follower) {
		if r == RectifyAbs || r == RectifySquare {
			f.rect = r
		}
	}
}

// Follower tracks the envelope of a signal without look-ahead. During the
// first window samples the average runs over the samples seen so far.
type Follower struct {
	rect   Rectifier
	window []float64
	pos    int
	count  int
	sum    float64
}

// New creates a follower averaging over window samples.
func New(window int, opts ...Option) (*Follower, error) {
	if window < 1 {
		return nil, fmt.Errorf("envelope: window must be at least 1, got %d", window)
	}
	f := &Follower{window: make([]float64, window)}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Update feeds one sample and returns the current envelope value.
func (f *Follower) Update(x float64) float64 {
	r := x
	switch f.rect {
	case RectifySquare:
		r = x * x
	default:
		if r < 0 {
			r = -r
		}
	}

	if f.count < len(f.window) {
		f.count++
	} else {
		f.sum -= f.window[f.pos]
	}
	f.window[f.pos] = r
	f.sum += r
	f.pos++
	if f.pos >= len(f.window) {
		f.pos = 0
	}
	return f.sum / float64(f.count)
}

// Window returns the averaging window length in samples.
func (f *Follower) Window() int {
	return len(f.window)
}

// Reset clears the follower state.
func (f *Follower) Reset() {
	for i := range f.window {
		f.window[i] = 0
	}
	f.pos = 0
	f.count = 0
	f.sum = 0
}
