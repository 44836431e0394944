package iir

import (
	"math"
	"testing"

	"github.com/openbiosig/semg-ecg-removal/dsp/filter/biquad"
	"github.com/openbiosig/semg-ecg-removal/dsp/filter/design"
)

const eps = 1e-12

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, []float64{1}); err == nil {
		t.Error("expected error for empty numerator")
	}
	if _, err := New([]float64{1}, nil); err == nil {
		t.Error("expected error for empty denominator")
	}
	if _, err := New([]float64{1}, []float64{0, 1}); err == nil {
		t.Error("expected error for zero leading denominator coefficient")
	}
}

func TestOnePoleImpulseResponse(t *testing.T) {
	// y[n] = x[n] + 0.5*y[n-1], impulse response 1, 0.5, 0.25, ...
	f, err := New([]float64{1}, []float64{1, -0.5})
	if err != nil {
		t.Fatal(err)
	}
	want := 1.0
	for i := 0; i < 16; i++ {
		x := 0.0
		if i == 0 {
			x = 1
		}
		got := f.ProcessSample(x)
		if !almostEqual(got, want, eps) {
			t.Errorf("impulse response[%d] = %v, want %v", i, got, want)
		}
		want *= 0.5
	}
}

func TestLeadingCoefficientNormalization(t *testing.T) {
	// Same filter with all coefficients doubled must behave identically.
	a, _ := New([]float64{1, 0.5}, []float64{1, -0.3})
	b, _ := New([]float64{2, 1}, []float64{2, -0.6})
	for i := 0; i < 32; i++ {
		x := math.Sin(0.2 * float64(i))
		ya := a.ProcessSample(x)
		yb := b.ProcessSample(x)
		if !almostEqual(ya, yb, eps) {
			t.Fatalf("sample %d: %v != %v", i, ya, yb)
		}
	}
}

func TestPureFIRBehaviour(t *testing.T) {
	// Denominator {1} reduces to an FIR filter.
	f, _ := New([]float64{0.5, 0.25}, []float64{1})
	got := []float64{
		f.ProcessSample(1),
		f.ProcessSample(0),
		f.ProcessSample(0),
	}
	want := []float64{0.5, 0.25, 0}
	for i := range want {
		if !almostEqual(got[i], want[i], eps) {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDCGain(t *testing.T) {
	// H(1) = (b0+b1) / (1+a1) for y[n] = b0 x[n] + b1 x[n-1] - a1 y[n-1].
	b := []float64{0.2, 0.1}
	a := []float64{1, -0.7}
	f, _ := New(b, a)
	var y float64
	for i := 0; i < 2000; i++ {
		y = f.ProcessSample(1)
	}
	want := (0.2 + 0.1) / (1 - 0.7)
	if !almostEqual(y, want, 1e-9) {
		t.Errorf("DC gain = %v, want %v", y, want)
	}
}

func TestBlockMatchesSample(t *testing.T) {
	b := []float64{0.1, 0.2, 0.1}
	a := []float64{1, -0.4, 0.2}
	fa, _ := New(b, a)
	fb, _ := New(b, a)

	in := make([]float64, 128)
	for i := range in {
		in[i] = math.Sin(0.05*float64(i)) + 0.3*math.Sin(0.41*float64(i))
	}
	blockOut := fa.ProcessBlock(in)
	for i, x := range in {
		want := fb.ProcessSample(x)
		if !almostEqual(blockOut[i], want, eps) {
			t.Fatalf("block[%d] = %v, sample = %v", i, blockOut[i], want)
		}
	}
}

func TestMatchesBiquadSection(t *testing.T) {
	// A designed second-order section run through the general direct-form-I
	// filter must match the transposed-form implementation.
	coeffs, err := design.Lowpass(100, 0.707, 1000)
	if err != nil {
		t.Fatal(err)
	}
	f, err := New(
		[]float64{coeffs.B0, coeffs.B1, coeffs.B2},
		[]float64{1, coeffs.A1, coeffs.A2},
	)
	if err != nil {
		t.Fatal(err)
	}
	sec := biquad.NewSection(coeffs)

	for i := 0; i < 512; i++ {
		x := math.Sin(0.07*float64(i)) + 0.5*math.Sin(0.9*float64(i))
		ya := f.ProcessSample(x)
		yb := sec.ProcessSample(x)
		if !almostEqual(ya, yb, 1e-9) {
			t.Fatalf("sample %d: direct form I %v, transposed form II %v", i, ya, yb)
		}
	}
}

func TestReset(t *testing.T) {
	f, _ := New([]float64{1}, []float64{1, -0.9})
	for i := 0; i < 10; i++ {
		f.ProcessSample(1)
	}
	f.Reset()
	if got := f.ProcessSample(0); !almostEqual(got, 0, eps) {
		t.Errorf("output after Reset = %v, want 0", got)
	}
}
