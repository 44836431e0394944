package qrs

import (
	"math"
	"testing"

	"github.com/openbiosig/semg-ecg-removal/dsp/signal"
)

func ecgWithNoise(t *testing.T, seed int64, n int) []float64 {
	t.Helper()
	gen, err := signal.NewGenerator(fs, seed)
	if err != nil {
		t.Fatal(err)
	}
	ecg, err := gen.ECGPulseTrain(1.2, 1, n)
	if err != nil {
		t.Fatal(err)
	}
	noise := gen.WhiteNoise(0.02, n)
	if err := signal.Add(ecg, noise); err != nil {
		t.Fatal(err)
	}
	return ecg
}

func TestPipelineDetectsECGBeats(t *testing.T) {
	p, err := NewPipeline(fs, 0)
	if err != nil {
		t.Fatal(err)
	}
	const seconds = 20
	in := ecgWithNoise(t, 11, seconds*int(fs))

	var events []Event
	for _, x := range in {
		if e, ok := p.Update(x); ok {
			events = append(events, e)
		}
	}

	// 1.2 Hz over 20 s is 24 beats; allow for learning at the start.
	if len(events) < 20 || len(events) > 26 {
		t.Fatalf("detected %d beats, want close to 24", len(events))
	}
	period := fs / 1.2
	for i := 1; i < len(events); i++ {
		rr := float64(events[i].Index - events[i-1].Index)
		if math.Abs(rr-period) > 20 {
			t.Errorf("R-R interval %v, want %v +/- 20", rr, period)
		}
	}
}

func TestPipelineGapTolerance(t *testing.T) {
	p, err := NewPipeline(fs, 0)
	if err != nil {
		t.Fatal(err)
	}
	in := ecgWithNoise(t, 3, 15*int(fs))
	// Punch a burst of NaNs into a quiet stretch.
	for i := 6000; i < 6050; i++ {
		in[i] = math.NaN()
	}

	var count int
	for _, x := range in {
		y, ok := p.Update(x)
		if ok {
			count++
			if !math.IsInf(float64(y.Index), 0) && y.Index < 0 {
				t.Fatal("negative event index")
			}
		}
	}
	if count < 12 {
		t.Errorf("detected %d beats across a gap, want at least 12", count)
	}
}

func TestPipelineDelay(t *testing.T) {
	p, _ := NewPipeline(fs, 0)
	if got := p.Delay(); got != 75 {
		t.Errorf("Delay = %d, want 75 at 1 kHz", got)
	}
}

func TestPipelineReset(t *testing.T) {
	a, _ := NewPipeline(fs, 0)
	b, _ := NewPipeline(fs, 0)
	in := ecgWithNoise(t, 5, 8000)
	for _, x := range in {
		a.Update(x)
	}
	a.Reset()
	for i, x := range in {
		_, oa := a.Update(x)
		_, ob := b.Update(x)
		if oa != ob {
			t.Fatalf("detection mismatch after Reset at sample %d", i)
		}
	}
}
