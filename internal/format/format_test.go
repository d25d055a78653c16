package format

import (
	"math"
	"testing"
)

func TestChannelCountMatchesNames(t *testing.T) {
	for _, l := range []ChannelLayout{Mono, Stereo, Quad, Surround51, Surround71} {
		if got, want := ChannelCount(l, 0), len(ChannelNames(l)); got != want {
			t.Errorf("layout %v: ChannelCount=%d, want %d", l, got, want)
		}
	}
}

func TestAmbisonicFirstOrderChannelCount(t *testing.T) {
	if got := ChannelCount(AmbisonicFirstOrder, 1); got != 4 {
		t.Errorf("first-order ambisonic channel count = %d, want 4", got)
	}
	if got := ChannelCount(AmbisonicFirstOrder, 3); got != 16 {
		t.Errorf("third-order ambisonic channel count = %d, want 16", got)
	}
}

func TestRemapIdentityCopies(t *testing.T) {
	src := [][]float32{{1, 2, 3}, {4, 5, 6}}
	dst := [][]float32{make([]float32, 3), make([]float32, 3)}
	Remap([]string{"L", "R"}, src, []string{"L", "R"}, dst, 3)
	for c := range src {
		for i := range src[c] {
			if dst[c][i] != src[c][i] {
				t.Fatalf("identity remap mismatch at ch %d idx %d", c, i)
			}
		}
	}
}

func TestRemapMonoToStereoDuplicates(t *testing.T) {
	src := [][]float32{{1, 1, 1}}
	dst := [][]float32{make([]float32, 3), make([]float32, 3)}
	Remap([]string{"C"}, src, []string{"L", "R"}, dst, 3)
	for i := 0; i < 3; i++ {
		if dst[0][i] == 0 || dst[1][i] == 0 {
			t.Errorf("mono->stereo fold produced silence at %d: L=%v R=%v", i, dst[0][i], dst[1][i])
		}
	}
}

func TestRemap51ToStereoExcludesLFE(t *testing.T) {
	names := ChannelNames(Surround51)
	src := make([][]float32, len(names))
	for i := range src {
		src[i] = []float32{0}
	}
	// isolate LFE
	lfeIdx := -1
	for i, n := range names {
		if n == "LFE" {
			lfeIdx = i
		}
	}
	src[lfeIdx][0] = 1
	dst := [][]float32{{0}, {0}}
	Remap(names, src, []string{"L", "R"}, dst, 1)
	if dst[0][0] != 0 || dst[1][0] != 0 {
		t.Errorf("LFE leaked into stereo downmix: L=%v R=%v", dst[0][0], dst[1][0])
	}
}

func TestQuantizeS16RoundTripNearLossless(t *testing.T) {
	for _, x := range []float32{0, 0.5, -0.5, 0.999, -1} {
		got := F32ToS16AndBack(x)
		if math.Abs(float64(got-x)) > 1.0/32767+1e-6 {
			t.Errorf("S16 round trip of %v = %v, error too large", x, got)
		}
	}
}

func TestQuantizeSaturatesAtRange(t *testing.T) {
	dst := make([]byte, 2)
	Quantize(S16, []float32{2.0}, 1, dst)
	v := int16(uint16(dst[0]) | uint16(dst[1])<<8)
	if v != 32767 {
		t.Errorf("overrange sample did not saturate: got %d", v)
	}
}

func TestQuantizeU8AddsBias(t *testing.T) {
	dst := make([]byte, 1)
	Quantize(U8, []float32{0}, 1, dst)
	if dst[0] != 128 {
		t.Errorf("U8 zero sample = %d, want 128 (mid-bias)", dst[0])
	}
}
