package design

import (
	"fmt"
	"math"

	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
)

// butterworthQ returns the Q of the index-th second-order section of an
// order-n Butterworth filter.
func butterworthQ(order, index int) float64 {
	return 1 / (2 * math.Sin(math.Pi*float64(2*index+1)/(2*float64(order))))
}

// ButterworthLowpass returns the section coefficients of an order-n
// Butterworth lowpass realized as a cascade of first- and second-order
// sections.
func ButterworthLowpass(freq float64, order int, sampleRate float64) ([]biquad.Coefficients, error) {
	return butterworthCascade(freq, order, sampleRate, false)
}

// ButterworthHighpass returns the section coefficients of an order-n
// Butterworth highpass realized as a cascade of first- and second-order
// sections.
func ButterworthHighpass(freq float64, order int, sampleRate float64) ([]biquad.Coefficients, error) {
	return butterworthCascade(freq, order, sampleRate, true)
}

func butterworthCascade(freq float64, order int, sampleRate float64, highpass bool) ([]biquad.Coefficients, error) {
	if order < 1 {
		return nil, fmt.Errorf("design: order must be at least 1, got %d", order)
	}
	if err := validate(freq, 1, sampleRate); err != nil {
		return nil, err
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	if order%2 == 1 {
		sections = append(sections, firstOrder(freq, sampleRate, highpass))
	}
	for i := 0; i < order/2; i++ {
		q := butterworthQ(order, i)
		var (
			c   biquad.Coefficients
			err error
		)
		if highpass {
			c, err = Highpass(freq, q, sampleRate)
		} else {
			c, err = Lowpass(freq, q, sampleRate)
		}
		if err != nil {
			return nil, err
		}
		sections = append(sections, c)
	}
	return sections, nil
}

// firstOrder returns a one-pole section via the bilinear transform, expressed
// as a biquad with zero second-order terms.
func firstOrder(freq, sampleRate float64, highpass bool) biquad.Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)
	if highpass {
		return biquad.Coefficients{
			B0: norm, B1: -norm,
			A1: (k - 1) * norm,
		}
	}
	return biquad.Coefficients{
		B0: k * norm, B1: k * norm,
		A1: (k - 1) * norm,
	}
}
