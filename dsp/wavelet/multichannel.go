package wavelet

import "fmt"

// MultiTransform bundles independent single-channel transforms with identical
// configuration, one per input channel.
type MultiTransform struct {
	transforms []*Transform
}

// NewMulti creates channels independent transforms.
func NewMulti(family Family, levels, channels int) (*MultiTransform, error) {
	if channels < 1 {
		return nil, fmt.Errorf("wavelet: channels must be at least 1, got %d", channels)
	}
	m := &MultiTransform{transforms: make([]*Transform, channels)}
	for i := range m.transforms {
		t, err := New(family, levels)
		if err != nil {
			return nil, err
		}
		m.transforms[i] = t
	}
	return m, nil
}

// Channel returns the transform for channel i.
func (m *MultiTransform) Channel(i int) *Transform {
	return m.transforms[i]
}

// Channels returns the number of channels.
func (m *MultiTransform) Channels() int {
	return len(m.transforms)
}

// Delay returns the round-trip delay shared by all channels.
func (m *MultiTransform) Delay() int {
	return m.transforms[0].Delay()
}

// Reset clears the state of every channel.
func (m *MultiTransform) Reset() {
	for _, t := range m.transforms {
		t.Reset()
	}
}
