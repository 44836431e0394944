// Package delay implements an integer-sample circular delay line.
package delay

import "fmt"

// Line is a circular buffer holding the most recent size samples.
type Line struct {
	buffer   []float64
	writePos int
}

// New creates a delay line holding size samples. The largest reachable delay
// is size-1 samples.
func New(size int) (*Line, error) {
	if size < 1 {
		return nil, fmt.Errorf("delay: size must be at least 1, got %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Write stores x as the most recent sample.
func (l *Line) Write(x float64) {
	l.buffer[l.writePos] = x
	l.writePos++
	if l.writePos >= len(l.buffer) {
		l.writePos = 0
	}
}

// Read returns the sample written delay steps ago. Read(0) is the most recent
// write. The delay is clamped to the line size.
func (l *Line) Read(delay int) float64 {
	if delay < 0 {
		delay = 0
	}
	if delay >= len(l.buffer) {
		delay = len(l.buffer) - 1
	}
	pos := l.writePos - 1 - delay
	if pos < 0 {
		pos += len(l.buffer)
	}
	return l.buffer[pos]
}

// Tick writes x and returns the sample delayed by the full line length. A
// line of size n delays its input by exactly n samples.
func (l *Line) Tick(x float64) float64 {
	y := l.buffer[l.writePos]
	l.buffer[l.writePos] = x
	l.writePos++
	if l.writePos >= len(l.buffer) {
		l.writePos = 0
	}
	return y
}

// Size returns the number of samples the line holds.
func (l *Line) Size() int {
	return len(l.buffer)
}

// Reset clears the line contents.
func (l *Line) Reset() {
	for i := range l.buffer {
		l.buffer[i] = 0
	}
	l.writePos = 0
}
