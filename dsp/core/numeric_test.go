package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		x, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-2, 0, 1, 0},
		{3, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.x, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.x, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Error("values within eps should compare equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-12) {
		t.Error("values outside eps should not compare equal")
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(0) || !IsFinite(-1.5) || !IsFinite(math.MaxFloat64) {
		t.Error("finite values reported non-finite")
	}
	if IsFinite(math.NaN()) {
		t.Error("NaN reported finite")
	}
	if IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Error("infinity reported finite")
	}
}

func TestFlushDenormal(t *testing.T) {
	if got := FlushDenormal(1e-320); got != 0 {
		t.Errorf("FlushDenormal(1e-320) = %v, want 0", got)
	}
	if got := FlushDenormal(1e-12); got != 1e-12 {
		t.Errorf("FlushDenormal(1e-12) = %v, want unchanged", got)
	}
}

func TestDBConversions(t *testing.T) {
	if got := LinearToDB(1); got != 0 {
		t.Errorf("LinearToDB(1) = %v, want 0", got)
	}
	if got := LinearToDB(10); math.Abs(got-20) > 1e-12 {
		t.Errorf("LinearToDB(10) = %v, want 20", got)
	}
	if got := PowerToDB(100); math.Abs(got-20) > 1e-12 {
		t.Errorf("PowerToDB(100) = %v, want 20", got)
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Error("LinearToDB(0) should be -Inf")
	}
	round := DBToLinear(LinearToDB(0.25))
	if math.Abs(round-0.25) > 1e-12 {
		t.Errorf("dB round trip = %v, want 0.25", round)
	}
}
