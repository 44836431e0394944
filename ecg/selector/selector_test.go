package selector

import (
	"math"
	"testing"

	"github.com/openbiosig/semg-ecg-removal/dsp/signal"
)

const fs = 1000.0

func calibrationFrames(t *testing.T, seconds int) [][]float64 {
	t.Helper()
	n := seconds * int(fs)
	gen, err := signal.NewGenerator(fs, 21)
	if err != nil {
		t.Fatal(err)
	}
	// Channel 0: pure muscle noise. Channel 1: clear cardiac activity.
	noiseOnly, err := gen.BandlimitedNoise(20, 150, 0.3, n)
	if err != nil {
		t.Fatal(err)
	}
	ecg, err := gen.ECGPulseTrain(1.2, 1, n)
	if err != nil {
		t.Fatal(err)
	}
	emg, err := gen.BandlimitedNoise(20, 150, 0.05, n)
	if err != nil {
		t.Fatal(err)
	}
	if err := signal.Add(ecg, emg); err != nil {
		t.Fatal(err)
	}

	frames := make([][]float64, n)
	for i := range frames {
		frames[i] = []float64{noiseOnly[i], ecg[i]}
	}
	return frames
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, fs, 5); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := New(2, 0, 5); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := New(2, fs, 0); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestSelectsECGChannel(t *testing.T) {
	s, err := New(2, fs, 8)
	if err != nil {
		t.Fatal(err)
	}
	frames := calibrationFrames(t, 9)

	var best int
	var done bool
	var doneAt int
	for i, f := range frames {
		best, done = s.Push(f)
		if done && doneAt == 0 {
			doneAt = i
		}
	}
	if !done {
		t.Fatal("selector did not finish within the calibration block")
	}
	if doneAt != 8*int(fs)-1 {
		t.Errorf("finished at sample %d, want %d", doneAt, 8*int(fs)-1)
	}
	if best != 1 {
		t.Errorf("Best channel = %d, want 1 (the ECG channel), scores %+v", best, s.Scores())
	}

	scores := s.Scores()
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}
	if scores[1].Value <= scores[0].Value {
		t.Errorf("ECG channel value %v not above noise channel %v",
			scores[1].Value, scores[0].Value)
	}
	if scores[1].Regularity < 0.5 {
		t.Errorf("regularity of steady rhythm = %v, want above 0.5", scores[1].Regularity)
	}
}

func TestDeterministic(t *testing.T) {
	frames := calibrationFrames(t, 6)
	run := func() (int, []Score) {
		s, err := New(2, fs, 5)
		if err != nil {
			t.Fatal(err)
		}
		var best int
		for _, f := range frames {
			best, _ = s.Push(f)
		}
		return best, s.Scores()
	}
	b1, s1 := run()
	b2, s2 := run()
	if b1 != b2 {
		t.Fatalf("selection not deterministic: %d vs %d", b1, b2)
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("score %d not deterministic: %+v vs %+v", i, s1[i], s2[i])
		}
	}
}

func TestPushAfterDoneIsStable(t *testing.T) {
	s, _ := New(1, fs, 0.01)
	frame := []float64{0}
	var best int
	var done bool
	for i := 0; i < 100; i++ {
		best, done = s.Push(frame)
	}
	if !done || best != 0 {
		t.Errorf("Push after done = (%d, %v), want (0, true)", best, done)
	}
}

func TestScoresNilBeforeDone(t *testing.T) {
	s, _ := New(2, fs, 5)
	if s.Scores() != nil {
		t.Error("Scores must be nil before calibration finished")
	}
	if s.Done() {
		t.Error("Done must be false before calibration finished")
	}
}

func TestBestPureFunction(t *testing.T) {
	if got := Best(nil); got != 0 {
		t.Errorf("Best(nil) = %d, want 0", got)
	}
	scores := []Score{
		{Channel: 0, Value: 1.5},
		{Channel: 1, Value: 3.0},
		{Channel: 2, Value: 3.0},
	}
	if got := Best(scores); got != 1 {
		t.Errorf("tie must resolve to lowest channel, got %d", got)
	}
	// Order independence.
	reversed := []Score{scores[2], scores[1], scores[0]}
	if got := Best(reversed); got != 1 {
		t.Errorf("Best depends on slice order, got %d", got)
	}
	nan := []Score{{Channel: 0, Value: math.Inf(-1)}}
	if got := Best(nan); got != 0 {
		t.Errorf("Best with -Inf value = %d, want 0", got)
	}
}

func TestNonFiniteFramesTolerated(t *testing.T) {
	s, _ := New(2, fs, 2)
	frames := calibrationFrames(t, 3)
	for i := 500; i < 520; i++ {
		frames[i][0] = math.NaN()
		frames[i][1] = math.Inf(1)
	}
	var done bool
	for _, f := range frames {
		_, done = s.Push(f)
	}
	if !done {
		t.Fatal("selector did not finish")
	}
	for _, sc := range s.Scores() {
		if math.IsNaN(sc.Value) {
			t.Errorf("channel %d score is NaN", sc.Channel)
		}
	}
}
