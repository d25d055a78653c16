package hrtf

import (
	"math"

	"github.com/kcat/openal-soft-sub004/internal/ambisonic"
	"github.com/kcat/openal-soft-sub004/internal/pan"
)

// AmbiIR holds a precomputed binaural impulse-response pair for one
// ambisonic channel.
type AmbiIR struct {
	Left, Right [IRLength]float32
	DelayLeft, DelayRight int
}

// fibonacciSphere returns n near-uniformly distributed unit vectors
// over the sphere (ambisonics X=front,Y=left,Z=up convention).
func fibonacciSphere(n int) []pan.Vec3 {
	pts := make([]pan.Vec3, n)
	ga := math.Pi * (3 - math.Sqrt(5)) // golden angle
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(math.Max(0, 1-z*z))
		theta := ga * float64(i)
		x := r * math.Cos(theta)
		y := r * math.Sin(theta)
		pts[i] = pan.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}
	}
	return pts
}

// PrecomputeAmbiToBinaural implements the direct B-format-to-binaural
// path: it sums N3D-normalized spherical-harmonic
// weighted virtual-speaker HRTFs over a near-uniform sphere sampling,
// producing one IR pair per ambisonic channel. At runtime the
// ambisonic bus is convolved channel-by-channel against these IRs
// (AmbiVoice below) instead of re-deriving them per voice.
func (d *Dataset) PrecomputeAmbiToBinaural(speakerCount int) []AmbiIR {
	if speakerCount <= 0 {
		speakerCount = 32
	}
	dirs := fibonacciSphere(speakerCount)
	out := make([]AmbiIR, ambisonic.MaxAmbiChannels)
	weightSum := make([]float32, ambisonic.MaxAmbiChannels)

	for _, dir := range dirs {
		elevationDeg := float32(math.Asin(float64(dir.Z))) * 180 / math.Pi
		azimuthDeg := float32(math.Atan2(float64(dir.Y), float64(dir.X))) * 180 / math.Pi
		r := d.Query(elevationDeg, azimuthDeg, 1.0)
		coeffs := pan.SHCoeffs(dir)

		for ch := 0; ch < ambisonic.MaxAmbiChannels; ch++ {
			w := coeffs[ch]
			weightSum[ch] += w * w
			for i := 0; i < IRLength; i++ {
				out[ch].Left[i] += w * r.Left[i]
				out[ch].Right[i] += w * r.Right[i]
			}
			out[ch].DelayLeft = r.DelayLeft
			out[ch].DelayRight = r.DelayRight
		}
	}

	// Normalize by accumulated SH energy so the reconstructed IR set
	// has unity gain for an omni (W-only) signal.
	for ch := range out {
		norm := weightSum[ch]
		if norm <= 0 {
			continue
		}
		scale := 1 / norm
		for i := 0; i < IRLength; i++ {
			out[ch].Left[i] *= scale
			out[ch].Right[i] *= scale
		}
	}
	return out
}

// AmbiVoice convolves a full ambisonic bus against a precomputed
// AmbiIR set, one channel at a time, summing into a stereo output.
type AmbiVoice struct {
	irs     []AmbiIR
	history [][historyLen]float32
	writePos int
}

// NewAmbiVoice builds per-channel convolution state for the given
// precomputed IR set.
func NewAmbiVoice(irs []AmbiIR) *AmbiVoice {
	return &AmbiVoice{
		irs:     irs,
		history: make([][historyLen]float32, len(irs)),
	}
}

// Process convolves n frames of an ambisonic bus (one []float32 per
// channel, length >= n) into interleaved stereo output.
func (a *AmbiVoice) Process(ambi [][]float32, out []float32, n int) {
	for i := 0; i < n; i++ {
		var left, right float32
		for ch := range a.irs {
			if ch >= len(ambi) {
				break
			}
			hist := &a.history[ch]
			hist[a.writePos] = ambi[ch][i]
			ir := &a.irs[ch]
			for k := 0; k < IRLength; k++ {
				idxL := (a.writePos - ir.DelayLeft - k + historyLen*4) % historyLen
				idxR := (a.writePos - ir.DelayRight - k + historyLen*4) % historyLen
				left += ir.Left[k] * hist[idxL]
				right += ir.Right[k] * hist[idxR]
			}
		}
		out[2*i] = left
		out[2*i+1] = right
		a.writePos = (a.writePos + 1) % historyLen
	}
}
