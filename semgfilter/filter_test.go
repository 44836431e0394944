package semgfilter

import (
	"errors"
	"math"
	"testing"

	"github.com/openbiosig/semg-ecg-removal/dsp/signal"
	"github.com/openbiosig/semg-ecg-removal/dsp/spectrum"
)

const fs = 1000.0

// contaminated returns an sEMG-like signal with a strong cardiac artifact:
// band-limited muscle noise plus an ECG pulse train at 1.2 Hz.
func contaminated(t *testing.T, seed int64, n int) []float64 {
	t.Helper()
	gen, err := signal.NewGenerator(fs, seed)
	if err != nil {
		t.Fatal(err)
	}
	emg, err := gen.BandlimitedNoise(30, 150, 0.15, n)
	if err != nil {
		t.Fatal(err)
	}
	ecg, err := gen.ECGPulseTrain(1.2, 1, n)
	if err != nil {
		t.Fatal(err)
	}
	if err := signal.Add(ecg, emg); err != nil {
		t.Fatal(err)
	}
	return ecg
}

func singleChannel(t *testing.T, opts ...Option) *Filter {
	t.Helper()
	f, err := New(1, append([]Option{WithSampleRate(fs)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		ch   int
		opts []Option
	}{
		{"zero channels", 0, nil},
		{"bad sample rate", 1, []Option{WithSampleRate(0)}},
		{"negative calibration", 1, []Option{WithCalibrationTime(-1)}},
		{"bad levels", 1, []Option{WithLevels(0)}},
		{"candidate out of range", 2, []Option{WithECGChannels(2)}},
		{"candidate twice", 2, []Option{WithECGChannels(0, 0)}},
		{"no candidates", 2, []Option{WithECGChannels()}},
		{"bad attenuation", 1, []Option{WithAttenuation(2)}},
		{"bad envelope window", 1, []Option{WithEnvelopeWindow(-5)}},
		{"bad gate widths", 1, []Option{WithSuppressedLevels(1, 2), WithGateWidths(100)}},
	}
	for _, tc := range cases {
		if _, err := New(tc.ch, append([]Option{WithSampleRate(fs)}, tc.opts...)...); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestChannelMismatchLeavesSessionUntouched(t *testing.T) {
	in := contaminated(t, 8, 4000)

	a := singleChannel(t)
	if _, _, err := a.ProcessBlock([][]float64{in, in}); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("wrong channel count: err = %v, want ErrChannelMismatch", err)
	}

	two, err := New(2, WithSampleRate(fs), WithCalibrationTime(0))
	if err != nil {
		t.Fatal(err)
	}
	ragged := [][]float64{in[:100], in[:99]}
	if _, _, err := two.ProcessBlock(ragged); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("ragged block: err = %v, want ErrChannelMismatch", err)
	}

	// The failed calls must not have advanced any state: outputs now match a
	// fresh session fed the same data.
	b := singleChannel(t)
	outA, _, err := a.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	outB, _, err := b.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	for i := range outA[0] {
		if outA[0][i] != outB[0][i] {
			t.Fatalf("state advanced by failed call: outputs differ at sample %d", i)
		}
	}
}

func TestStreamingConsistency(t *testing.T) {
	in := contaminated(t, 4, 12000)

	whole := singleChannel(t)
	wantOut, wantEnv, err := whole.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}

	chunked := singleChannel(t)
	sizes := []int{1, 7, 64, 129, 1000, 3}
	var gotOut, gotEnv []float64
	pos, si := 0, 0
	for pos < len(in) {
		n := sizes[si%len(sizes)]
		si++
		if pos+n > len(in) {
			n = len(in) - pos
		}
		o, e, err := chunked.ProcessBlock([][]float64{in[pos : pos+n]})
		if err != nil {
			t.Fatal(err)
		}
		gotOut = append(gotOut, o[0]...)
		gotEnv = append(gotEnv, e[0]...)
		pos += n
	}

	for i := range wantOut[0] {
		if wantOut[0][i] != gotOut[i] || wantEnv[0][i] != gotEnv[i] {
			t.Fatalf("chunked output differs from whole-block output at sample %d", i)
		}
	}
	if len(whole.Beats()) != len(chunked.Beats()) {
		t.Fatalf("beat count differs: %d vs %d", len(whole.Beats()), len(chunked.Beats()))
	}
}

func TestPassthroughDelayWithSuppressionDisarmed(t *testing.T) {
	// Astronomical thresholds never trigger, so the session reduces to the
	// wavelet round trip: output equals input delayed by Delay() samples.
	f := singleChannel(t, WithThresholdFactors(1e12, 1e12))
	if f.Delay() != 21 {
		t.Fatalf("Delay = %d, want 21 for db2 with 3 levels", f.Delay())
	}
	gen, _ := signal.NewGenerator(fs, 17)
	in, err := gen.BandlimitedNoise(5, 200, 1, 6000)
	if err != nil {
		t.Fatal(err)
	}
	out, _, err := f.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	d := f.Delay()
	for n := 1000; n < len(in); n++ {
		if math.Abs(out[0][n]-in[n-d]) > 1e-9 {
			t.Fatalf("out[%d] = %v, want in[%d] = %v", n, out[0][n], n-d, in[n-d])
		}
	}
}

func TestEndToEndArtifactRemoval(t *testing.T) {
	const seconds = 25
	n := seconds * int(fs)
	in := contaminated(t, 1, n)

	f := singleChannel(t, WithApproximationDrop())
	out, envs, err := f.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}

	// Beat detection: 1.2 Hz pacing with about one beat lost to learning.
	beats := f.Beats()
	if len(beats) < 20 || len(beats) > 32 {
		t.Fatalf("detected %d beats, want close to %d", len(beats), int(1.2*seconds))
	}
	period := fs / 1.2
	for i := 1; i < len(beats); i++ {
		rr := float64(beats[i].Index - beats[i-1].Index)
		if math.Abs(rr-period) > 20 {
			t.Errorf("R-R interval %v, want %v +/- 20", rr, period)
		}
	}

	// Cardiac fundamental attenuation of at least 10 dB on the steady-state
	// region.
	skip := 5 * int(fs)
	rawPow, err := spectrum.AnalyzeBlock(in[skip:], 1.2, fs)
	if err != nil {
		t.Fatal(err)
	}
	denPow, err := spectrum.AnalyzeBlock(out[0][skip:], 1.2, fs)
	if err != nil {
		t.Fatal(err)
	}
	attDB := 10 * math.Log10(rawPow/denPow)
	if attDB < 10 {
		t.Errorf("cardiac attenuation = %.1f dB, want at least 10", attDB)
	}

	// The muscle signal must survive: the output is not silenced.
	var outRMS float64
	for _, v := range out[0][skip:] {
		outRMS += v * v
	}
	outRMS = math.Sqrt(outRMS / float64(n-skip))
	if outRMS < 0.01 {
		t.Errorf("denoised RMS = %v, output appears silenced", outRMS)
	}

	// Envelopes are causal averages of the denoised output: finite and
	// non-negative throughout.
	for i, v := range envs[0] {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("envelope[%d] = %v", i, v)
		}
	}
}

func TestGapTolerance(t *testing.T) {
	n := 15 * int(fs)
	in := contaminated(t, 9, n)
	for i := 7000; i < 7040; i++ {
		in[i] = math.NaN()
	}
	in[9000] = math.Inf(1)

	f := singleChannel(t)
	out, _, err := f.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.InvalidSamples(); got != 41 {
		t.Errorf("InvalidSamples = %d, want 41", got)
	}
	for i, v := range out[0] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output at sample %d", i)
		}
	}
	if len(f.Beats()) < 12 {
		t.Errorf("detected %d beats across the gap, want at least 12", len(f.Beats()))
	}
}

func TestCalibrationSelectsBestChannel(t *testing.T) {
	const seconds = 14
	n := seconds * int(fs)
	gen, err := signal.NewGenerator(fs, 33)
	if err != nil {
		t.Fatal(err)
	}
	noiseOnly, err := gen.BandlimitedNoise(20, 150, 0.3, n)
	if err != nil {
		t.Fatal(err)
	}
	withECG := contaminated(t, 34, n)

	f, err := New(2, WithSampleRate(fs), WithCalibrationTime(6))
	if err != nil {
		t.Fatal(err)
	}
	if !f.Calibrating() {
		t.Fatal("session must start in calibration")
	}

	out, _, err := f.ProcessBlock([][]float64{noiseOnly, withECG})
	if err != nil {
		t.Fatal(err)
	}
	if f.Calibrating() {
		t.Fatal("calibration did not finish")
	}
	if got := f.BestChannel(); got != 1 {
		t.Errorf("BestChannel = %d, want 1", got)
	}

	// Output is zero during calibration and alive afterwards.
	calSamples := 6 * int(fs)
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < calSamples; i++ {
			if out[ch][i] != 0 {
				t.Fatalf("channel %d output %v during calibration at sample %d", ch, out[ch][i], i)
			}
		}
	}
	var post float64
	for _, v := range out[1][calSamples+2000:] {
		post += v * v
	}
	if post == 0 {
		t.Error("no output after calibration")
	}

	for _, b := range f.Beats() {
		if b.Channel != 1 {
			t.Errorf("beat attributed to channel %d, want 1", b.Channel)
		}
		if b.Index < int64(calSamples) {
			t.Errorf("beat at sample %d inside the calibration phase", b.Index)
		}
	}
}

func TestResetReproducesRun(t *testing.T) {
	in := contaminated(t, 5, 10000)
	f := singleChannel(t)
	first, _, err := f.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	beatsFirst := len(f.Beats())

	f.Reset()
	if f.InvalidSamples() != 0 || len(f.Beats()) != 0 {
		t.Fatal("Reset did not clear counters")
	}
	second, _, err := f.ProcessBlock([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("outputs differ after Reset at sample %d", i)
		}
	}
	if len(f.Beats()) != beatsFirst {
		t.Errorf("beat count after Reset = %d, want %d", len(f.Beats()), beatsFirst)
	}
}

func TestEmptyBlock(t *testing.T) {
	f := singleChannel(t)
	out, envs, err := f.ProcessBlock([][]float64{{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out[0]) != 0 || len(envs[0]) != 0 {
		t.Errorf("empty block produced %d/%d samples", len(out[0]), len(envs[0]))
	}
}

func TestAccessors(t *testing.T) {
	f, err := New(3, WithSampleRate(fs), WithCalibrationTime(0), WithECGChannels(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if f.Channels() != 3 {
		t.Errorf("Channels = %d, want 3", f.Channels())
	}
	if f.SampleRate() != fs {
		t.Errorf("SampleRate = %v, want %v", f.SampleRate(), fs)
	}
	if f.BestChannel() != 2 {
		t.Errorf("BestChannel = %d, want first candidate 2 without calibration", f.BestChannel())
	}
	if f.Calibrating() {
		t.Error("calibration must be disabled")
	}
	if f.HeartRate() != 80 {
		t.Errorf("prior heart rate = %v bpm, want 80", f.HeartRate())
	}
}
