// Package cardiac quantifies how much cardiac energy an artifact-removal
// session took out of a surface EMG recording. It compares the spectra of
// the raw and denoised signals at the heartbeat fundamental and its
// harmonics, and checks how much of the muscle band survived.
package cardiac

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/openbiosig/semg-ecg-removal/dsp/core"
	"github.com/openbiosig/semg-ecg-removal/dsp/spectrum"
	"github.com/openbiosig/semg-ecg-removal/dsp/window"
)

const (
	defaultMaxHarmonics = 5
	defaultMuscleLowHz  = 30.0
	defaultMuscleHighHz = 200.0
)

// Config holds the analysis parameters.
type Config struct {
	SampleRate float64
	// CardiacFreq is the heartbeat fundamental in Hz. Zero picks the
	// strongest raw-spectrum bin below the muscle band.
	CardiacFreq float64
	// FFTSize defaults to the next power of two covering the input.
	FFTSize int
	// MaxHarmonics counts the fundamental, default 5.
	MaxHarmonics int
	// CaptureBins widens each harmonic band by this many bins on both
	// sides. Default 2, matching the Hann main lobe.
	CaptureBins int
	// MuscleLowFreq and MuscleHighFreq bound the retention band in Hz.
	// Defaults 30 and 200.
	MuscleLowFreq  float64
	MuscleHighFreq float64
	WindowType     window.Type
}

// Result holds the comparison between the raw and denoised spectra.
type Result struct {
	CardiacFreq float64
	// CardiacRaw and CardiacResidual are the summed harmonic-band powers
	// before and after denoising.
	CardiacRaw      float64
	CardiacResidual float64
	// AttenuationDB is positive when cardiac energy was removed.
	AttenuationDB float64
	// HarmonicAttenuationDB lists the per-harmonic attenuation, starting
	// at the fundamental.
	HarmonicAttenuationDB []float64
	// MuscleRetentionDB is the power change inside the muscle band with
	// the harmonic bands excluded. Near zero means the muscle signal
	// passed through intact; strongly negative means it was damaged.
	MuscleRetentionDB float64
}

// Analyze windows both signals, transforms them and compares cardiac and
// muscle-band power. raw and denoised must have equal, non-zero length.
func Analyze(raw, denoised []float64, cfg Config) (Result, error) {
	if len(raw) == 0 || len(raw) != len(denoised) {
		return Result{}, fmt.Errorf("cardiac: need equal non-empty signals, got %d and %d",
			len(raw), len(denoised))
	}
	cfg, err := normalizeConfig(cfg, len(raw))
	if err != nil {
		return Result{}, err
	}

	rawPow, err := powerSpectrum(raw, cfg)
	if err != nil {
		return Result{}, err
	}
	denPow, err := powerSpectrum(denoised, cfg)
	if err != nil {
		return Result{}, err
	}

	binHz := cfg.SampleRate / float64(cfg.FFTSize)
	maxBin := len(rawPow) - 1

	fundBin := fundamentalBin(rawPow, cfg, binHz)
	if fundBin < 1 {
		return Result{}, fmt.Errorf("cardiac: fundamental %g Hz below spectral resolution %g Hz",
			cfg.CardiacFreq, binHz)
	}

	res := Result{CardiacFreq: float64(fundBin) * binHz}
	cardiacBins := make(map[int]bool)
	for k := 1; k <= cfg.MaxHarmonics; k++ {
		center := k * fundBin
		if center > maxBin {
			break
		}
		lo := clampInt(center-cfg.CaptureBins, 0, maxBin)
		hi := clampInt(center+cfg.CaptureBins, 0, maxBin)
		var r, d float64
		for i := lo; i <= hi; i++ {
			r += rawPow[i]
			d += denPow[i]
			cardiacBins[i] = true
		}
		res.CardiacRaw += r
		res.CardiacResidual += d
		res.HarmonicAttenuationDB = append(res.HarmonicAttenuationDB, powerRatioDB(r, d))
	}
	res.AttenuationDB = powerRatioDB(res.CardiacRaw, res.CardiacResidual)

	lo := clampInt(int(math.Round(cfg.MuscleLowFreq/binHz)), 1, maxBin)
	hi := clampInt(int(math.Round(cfg.MuscleHighFreq/binHz)), lo, maxBin)
	var muscleRaw, muscleDen float64
	for i := lo; i <= hi; i++ {
		if cardiacBins[i] {
			continue
		}
		muscleRaw += rawPow[i]
		muscleDen += denPow[i]
	}
	res.MuscleRetentionDB = -powerRatioDB(muscleRaw, muscleDen)
	return res, nil
}

func normalizeConfig(cfg Config, signalLen int) (Config, error) {
	if cfg.SampleRate <= 0 {
		return cfg, fmt.Errorf("cardiac: sample rate must be positive, got %g", cfg.SampleRate)
	}
	if cfg.CardiacFreq < 0 || cfg.CardiacFreq >= cfg.SampleRate/2 {
		return cfg, fmt.Errorf("cardiac: cardiac frequency %g Hz outside [0, %g)",
			cfg.CardiacFreq, cfg.SampleRate/2)
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = nextPowerOf2(signalLen)
	}
	if cfg.MaxHarmonics <= 0 {
		cfg.MaxHarmonics = defaultMaxHarmonics
	}
	if cfg.CaptureBins <= 0 {
		cfg.CaptureBins = 2
	}
	if cfg.MuscleLowFreq <= 0 {
		cfg.MuscleLowFreq = defaultMuscleLowHz
	}
	if cfg.MuscleHighFreq <= cfg.MuscleLowFreq {
		cfg.MuscleHighFreq = defaultMuscleHighHz
	}
	cfg.MuscleHighFreq = core.Clamp(cfg.MuscleHighFreq, cfg.MuscleLowFreq, cfg.SampleRate/2)
	if cfg.WindowType == 0 {
		cfg.WindowType = window.TypeHann
	}
	return cfg, nil
}

// powerSpectrum returns |X[k]|^2 for the non-negative-frequency bins of the
// windowed signal.
func powerSpectrum(signal []float64, cfg Config) ([]float64, error) {
	coeffs := window.Generate(cfg.WindowType, len(signal))
	in := make([]complex128, cfg.FFTSize)
	for i, v := range signal {
		in[i] = complex(v*coeffs[i], 0)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("cardiac: %w", err)
	}
	out := make([]complex128, cfg.FFTSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("cardiac: %w", err)
	}
	return spectrum.Power(out[:cfg.FFTSize/2+1]), nil
}

// fundamentalBin locates the heartbeat fundamental: the configured frequency
// rounded to a bin, or the strongest raw bin below the muscle band.
func fundamentalBin(rawPow []float64, cfg Config, binHz float64) int {
	if cfg.CardiacFreq > 0 {
		return int(math.Round(cfg.CardiacFreq / binHz))
	}
	hi := clampInt(int(math.Round(cfg.MuscleLowFreq/binHz)), 1, len(rawPow)-1)
	best, bestVal := 0, -1.0
	for i := 1; i <= hi; i++ {
		if rawPow[i] > bestVal {
			bestVal = rawPow[i]
			best = i
		}
	}
	return best
}

func powerRatioDB(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	if after <= 0 {
		return math.Inf(1)
	}
	return core.PowerToDB(before / after)
}

func clampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
