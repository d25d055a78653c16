// Package format implements the device format converter: channel
// remapping between standard layouts and dithered/truncating
// quantization to the device sample type. It does no sample-rate
// conversion.
package format

import (
	"math"
	"math/rand"
)

// SampleType enumerates the PCM sample representations a device can
// target.
type SampleType int

const (
	U8 SampleType = iota
	S8
	S16
	S32
	F32
)

// ChannelLayout enumerates supported speaker layouts.
type ChannelLayout int

const (
	Mono ChannelLayout = iota
	Stereo
	Quad
	Surround51
	Surround51Rear
	Surround51Side
	Surround61
	Surround71
	AmbisonicFirstOrder
	BinauralHRTF
)

// ChannelNames returns the WFX channel order (L R C LFE Bl Br Sl Sr)
// for a layout.
func ChannelNames(l ChannelLayout) []string {
	switch l {
	case Mono:
		return []string{"C"}
	case Stereo, BinauralHRTF:
		return []string{"L", "R"}
	case Quad:
		return []string{"L", "R", "Bl", "Br"}
	case Surround51, Surround51Rear:
		return []string{"L", "R", "C", "LFE", "Bl", "Br"}
	case Surround51Side:
		return []string{"L", "R", "C", "LFE", "Sl", "Sr"}
	case Surround61:
		return []string{"L", "R", "C", "LFE", "Sl", "Sr", "Bc"}
	case Surround71:
		return []string{"L", "R", "C", "LFE", "Bl", "Br", "Sl", "Sr"}
	default:
		return nil
	}
}

// ChannelCount is len(ChannelNames(l)), except for ambisonic layouts
// which report their ACN channel count directly.
func ChannelCount(l ChannelLayout, ambiOrder int) int {
	if l == AmbisonicFirstOrder {
		return (ambiOrder + 1) * (ambiOrder + 1)
	}
	return len(ChannelNames(l))
}

// downmixCoefficient returns the ITU-style downmix weight for folding
// a channel named `from` into output channel `to` ("L" or "R" for
// stereo, "C" for mono).
func downmixCoefficient(from, to string) float32 {
	const (
		center = 0.7071068 // -3dB
		side   = 0.7071068
		rear   = 0.7071068
	)
	switch from {
	case "L":
		if to == "L" {
			return 1
		}
		if to == "C" {
			return center
		}
	case "R":
		if to == "R" {
			return 1
		}
		if to == "C" {
			return center
		}
	case "C":
		return center
	case "LFE":
		return 0 // LFE is conventionally excluded from a stereo fold-down
	case "Bl", "Sl":
		if to == "L" {
			return rear
		}
	case "Br", "Sr":
		if to == "R" {
			return rear
		}
	}
	return 0
}

// Remap produces a stereo or mono downmix (or identity passthrough)
// from an arbitrary named input channel set. src[i] corresponds to
// srcNames[i]; dst must have len(dstNames) channels, each a []float32
// of n samples, pre-zeroed by the caller (remap accumulates).
func Remap(srcNames []string, src [][]float32, dstNames []string, dst [][]float32, n int) {
	// Identity fast path: same channel set, same order.
	if sameNames(srcNames, dstNames) {
		for c := range src {
			copy(dst[c][:n], src[c][:n])
		}
		return
	}

	for si, name := range srcNames {
		for di, dn := range dstNames {
			var coeff float32
			if name == dn {
				coeff = 1
			} else if len(dstNames) <= 2 {
				coeff = downmixCoefficient(name, dn)
			}
			if coeff == 0 {
				continue
			}
			s := src[si]
			d := dst[di]
			for i := 0; i < n; i++ {
				d[i] += coeff * s[i]
			}
		}
	}
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Quantize converts n f32 samples in [-1,1] to the device sample type,
// saturating at the type's range. Integer types use truncating
// round-to-nearest-even; unsigned types add the half-range bias.
func Quantize(t SampleType, src []float32, n int, dst []byte) {
	switch t {
	case F32:
		for i := 0; i < n; i++ {
			putF32LE(dst[i*4:], src[i])
		}
	case S8:
		for i := 0; i < n; i++ {
			dst[i] = byte(int8(quantizeSigned(src[i], 127)))
		}
	case U8:
		for i := 0; i < n; i++ {
			dst[i] = byte(quantizeSigned(src[i], 127) + 128)
		}
	case S16:
		for i := 0; i < n; i++ {
			v := int16(quantizeSigned(src[i], 32767))
			putS16LE(dst[i*2:], v)
		}
	case S32:
		for i := 0; i < n; i++ {
			v := int32(quantizeSigned32(src[i], 2147483647))
			putS32LE(dst[i*4:], v)
		}
	}
}

func quantizeSigned(x float32, maxVal int) int {
	v := float64(x) * float64(maxVal)
	r := roundNearestEven(v)
	if r > float64(maxVal) {
		r = float64(maxVal)
	}
	if r < -float64(maxVal)-1 {
		r = -float64(maxVal) - 1
	}
	return int(r)
}

func quantizeSigned32(x float32, maxVal int64) int64 {
	v := float64(x) * float64(maxVal)
	r := roundNearestEven(v)
	if r > float64(maxVal) {
		r = float64(maxVal)
	}
	if r < -float64(maxVal)-1 {
		r = -float64(maxVal) - 1
	}
	return int64(r)
}

func roundNearestEven(v float64) float64 {
	floor := math.Floor(v)
	diff := v - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			return floor
		}
		return floor + 1
	}
}

// Dither adds TPDF (triangular probability density) dither before
// quantization to a narrower integer format, reducing quantization
// distortion at the cost of a small noise floor. Not applied by
// Quantize directly -- callers needing dither add it to src first via
// this helper so the device converter can choose per-format whether
// it's worth the cost (e.g. skip for F32 passthrough).
func Dither(dst []float32, src []float32, n int, lsb float32, rng *rand.Rand) {
	for i := 0; i < n; i++ {
		noise := (rng.Float32() - rng.Float32()) * lsb
		dst[i] = src[i] + noise
	}
}

func putF32LE(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func putS16LE(b []byte, v int16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putS32LE(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// F32ToS16AndBack round-trips a sample through S16 quantization,
// exposed for round-trip tests.
func F32ToS16AndBack(x float32) float32 {
	v := quantizeSigned(x, 32767)
	return float32(v) / 32767
}
