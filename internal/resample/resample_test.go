package resample

import (
	"math"
	"testing"
)

func TestPointRateOneIsIdentity(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]float32, 4)

	s := NewState(Point, 1.0)
	s.Process(src, 0, FractionOne, dst)

	want := []float32{1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v (bit-identical copy path)", i, dst[i], want[i])
		}
	}
}

func TestLinearInterpolatesMidpoint(t *testing.T) {
	src := []float32{0, 2, 4, 6, 8}
	dst := make([]float32, 2)

	s := NewState(Linear, 1.0)
	// frac = FractionOne/2 means halfway between src[0] and src[1].
	s.Process(src, FractionOne/2, FractionOne, dst)

	if math.Abs(float64(dst[0]-1.0)) > 1e-5 {
		t.Errorf("dst[0] = %v, want 1.0", dst[0])
	}
}

func TestCubicPassesThroughKnownSamples(t *testing.T) {
	// A pure ramp should resample back to itself at integer positions
	// (frac == 0) regardless of kernel width. History(Cubic) == 1, so
	// index 0 of src is one sample before the first output position.
	src := []float32{-1, 0, 1, 2, 3, 4, 5}
	dst := make([]float32, 3)

	s := NewState(Cubic, 1.0)
	s.Process(src, 0, FractionOne, dst)

	for i, v := range dst {
		want := float32(i)
		if math.Abs(float64(v-want)) > 1e-4 {
			t.Errorf("dst[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestBSincDoesNotExplode(t *testing.T) {
	n := 64
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) * 0.3))
	}
	dst := make([]float32, 16)

	s := NewState(BSinc12, 1.0)
	// History(BSinc12) == 5, so start reading 5 samples in.
	s.Process(src[History(BSinc12):], 0, FractionOne, dst)

	for i, v := range dst {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 4 {
			t.Errorf("bsinc12 dst[%d] = %v, looks unstable", i, v)
		}
	}
}

func TestBSincPassesThroughKnownSamples(t *testing.T) {
	half := History(BSinc12)
	n := 2*half + 8
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(i - half)
	}
	dst := make([]float32, 2)

	s := NewState(BSinc12, 1.0)
	s.Process(src, 0, FractionOne, dst)

	for i, v := range dst {
		want := float32(i)
		if math.Abs(float64(v-want)) > 0.05 {
			t.Errorf("bsinc12 dst[%d] = %v, want ~%v", i, v, want)
		}
	}
}

func TestDownsamplingNarrowsScale(t *testing.T) {
	s := NewState(BSinc24, 2.0)
	if s.Scale != 0.5 {
		t.Errorf("Scale = %v, want 0.5 for 2x downsample", s.Scale)
	}
	s = NewState(BSinc24, 0.5)
	if s.Scale != 1.0 {
		t.Errorf("Scale = %v, want 1.0 when upsampling", s.Scale)
	}
}

func TestHistoryFutureWithinMaxPadding(t *testing.T) {
	for _, k := range []Kind{Point, Linear, Cubic, BSinc12, BSinc24} {
		if History(k) > MaxPadding || Future(k) > MaxPadding {
			t.Errorf("kind %d: History=%d Future=%d exceed MaxPadding=%d", k, History(k), Future(k), MaxPadding)
		}
	}
}
