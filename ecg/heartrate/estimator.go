// Package heartrate tracks the R-R interval of a beat stream as the mean of
// the most recent intervals, seeded with an 80 bpm prior.
package heartrate

import "fmt"

// DefaultIntervals is how many recent R-R intervals the estimate averages.
const DefaultIntervals = 4

// Estimator consumes one boolean per sample and exposes the current R-R
// estimate in samples. Until two beats have been seen it reports the prior.
type Estimator struct {
	sampleRate float64
	prior      int
	intervals  []int
	pos        int
	count      int
	sinceBeat  int
	haveBeat   bool
}

// New creates an estimator for the given sample rate.
func New(sampleRate float64) (*Estimator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("heartrate: sample rate must be positive, got %g", sampleRate)
	}
	return &Estimator{
		sampleRate: sampleRate,
		prior:      int(0.75 * sampleRate),
		intervals:  make([]int, DefaultIntervals),
	}, nil
}

// Update advances one sample and returns the current R-R estimate in
// samples. Pass beat true on samples where a detection fired.
func (e *Estimator) Update(beat bool) int {
	e.sinceBeat++
	if beat {
		if e.haveBeat {
			e.intervals[e.pos] = e.sinceBeat
			e.pos++
			if e.pos >= len(e.intervals) {
				e.pos = 0
			}
			if e.count < len(e.intervals) {
				e.count++
			}
		}
		e.haveBeat = true
		e.sinceBeat = 0
	}
	return e.RR()
}

// RR returns the current R-R interval estimate in samples.
func (e *Estimator) RR() int {
	if e.count == 0 {
		return e.prior
	}
	sum := 0
	for i := 0; i < e.count; i++ {
		sum += e.intervals[i]
	}
	return sum / e.count
}

// BPM returns the estimate converted to beats per minute.
func (e *Estimator) BPM() float64 {
	return 60 * e.sampleRate / float64(e.RR())
}

// Reset restores the prior.
func (e *Estimator) Reset() {
	for i := range e.intervals {
		e.intervals[i] = 0
	}
	e.pos = 0
	e.count = 0
	e.sinceBeat = 0
	e.haveBeat = false
}
