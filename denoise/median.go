package denoise

import "sort"

// runningMedian maintains the median of a sliding window using a sorted
// shadow slice. Window sizes here are a few hundred samples, where the
// binary-search insert/remove beats heap bookkeeping.
type runningMedian struct {
	window []float64
	sorted []float64
	pos    int
	count  int
}

func newRunningMedian(size int) *runningMedian {
	return &runningMedian{
		window: make([]float64, size),
		sorted: make([]float64, 0, size),
	}
}

// push adds x, evicts the oldest value once the window is full, and returns
// the current median.
func (m *runningMedian) push(x float64) float64 {
	if m.count == len(m.window) {
		m.remove(m.window[m.pos])
	} else {
		m.count++
	}
	m.window[m.pos] = x
	m.pos++
	if m.pos >= len(m.window) {
		m.pos = 0
	}
	m.insert(x)
	return m.median()
}

func (m *runningMedian) insert(x float64) {
	i := sort.SearchFloat64s(m.sorted, x)
	m.sorted = append(m.sorted, 0)
	copy(m.sorted[i+1:], m.sorted[i:])
	m.sorted[i] = x
}

func (m *runningMedian) remove(x float64) {
	i := sort.SearchFloat64s(m.sorted, x)
	m.sorted = append(m.sorted[:i], m.sorted[i+1:]...)
}

func (m *runningMedian) median() float64 {
	n := len(m.sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return m.sorted[n/2]
	}
	return (m.sorted[n/2-1] + m.sorted[n/2]) / 2
}

func (m *runningMedian) reset() {
	m.pos = 0
	m.count = 0
	m.sorted = m.sorted[:0]
}
