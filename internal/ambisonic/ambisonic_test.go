package ambisonic

import (
	"math"
	"testing"
)

func TestDecodeIdentityMatrix(t *testing.T) {
	m := NewMatrix(2, 2)
	m[0][0] = 1
	m[1][1] = 1

	out := m.Decode([]float32{3, 5})
	if out[0] != 3 || out[1] != 5 {
		t.Errorf("decode = %v, want [3 5]", out)
	}
}

func TestDecodeIntoAccumulatesNothingExtra(t *testing.T) {
	m := NewMatrix(1, 1)
	m[0][0] = 2
	out := make([]float32, 1)
	m.DecodeInto([]float32{4}, out)
	if out[0] != 8 {
		t.Errorf("decode = %v, want 8", out[0])
	}
}

func TestLRSplitterSumsToInput(t *testing.T) {
	s := NewLRSplitter(0.1)
	n := 256
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) * 0.7))
	}
	lo := make([]float32, n)
	hi := make([]float32, n)
	s.Split(src, lo, hi, n)

	// after settling, lo+hi should track src closely
	for i := 64; i < n; i++ {
		sum := lo[i] + hi[i]
		if math.Abs(float64(sum-src[i])) > 0.05 {
			t.Errorf("sample %d: lo+hi=%v src=%v", i, sum, src[i])
		}
	}
}

func TestUpsampleFirstOrderScalesW(t *testing.T) {
	wyzx := []float32{1, 1, 1, 1}
	UpsampleFirstOrder(wyzx)
	if wyzx[0] <= 1 || wyzx[1] <= 1 {
		t.Errorf("upsample did not scale up: %v", wyzx)
	}
}

func TestDualBandDecodeSliceNoNaN(t *testing.T) {
	low := NewMatrix(2, 2)
	high := NewMatrix(2, 2)
	low[0][0], low[1][1] = 1, 1
	high[0][0], high[1][1] = 1, 1
	d := NewDualBand(low, high, 400, 48000)

	ambi := [][]float32{make([]float32, 32), make([]float32, 32)}
	for i := range ambi[0] {
		ambi[0][i] = 1
	}
	out := [][]float32{make([]float32, 32), make([]float32, 32)}
	d.DecodeSlice(ambi, out, 32)

	for _, ch := range out {
		for _, v := range ch {
			if math.IsNaN(float64(v)) {
				t.Fatalf("NaN in dual-band decode output")
			}
		}
	}
}
