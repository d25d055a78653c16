// Package hrtf implements HRTF-based binaural rendering:
// dataset lookup with bilinear interpolation across elevation/azimuth,
// per-voice FIR convolution with crossfaded coefficient updates, and
// the direct ambisonic-to-binaural decode path.
package hrtf

import "math"

// IRLength is the canonical impulse-response length in samples
// ("MinPHR00" dataset format).
const IRLength = 128

// Elevation is one ring of azimuth-indexed impulse responses.
type Elevation struct {
	AzimuthCount int
	// Left/Right are AzimuthCount*IRLength long, azimuth-major.
	Left, Right []float32
	// Delay is the integer per-ear sample delay, one pair per azimuth.
	DelayLeft, DelayRight []int
	ElevationDeg          float32
}

// Dataset is the in-memory form of a loaded HRTF table.
// internal/hrtfdata is responsible for producing one from the binary
// file format; this package only consumes it.
type Dataset struct {
	SampleRate int
	Elevations []Elevation
}

func wrapAngle(a, period float64) float64 {
	a = math.Mod(a, period)
	if a < 0 {
		a += period
	}
	return a
}

// irAt returns the left/right IR slices and delays for a given
// elevation ring index and azimuth index.
func (e *Elevation) irAt(az int) (left, right []float32, dl, dr int) {
	off := az * IRLength
	return e.Left[off : off+IRLength], e.Right[off : off+IRLength], e.DelayLeft[az], e.DelayRight[az]
}

// Result is the output of a dataset Query: interpolated IRs and
// delays for an arbitrary (elevation, azimuth) direction.
type Result struct {
	Left, Right         [IRLength]float32
	DelayLeft, DelayRight int
}

// Query performs four-corner bilinear interpolation across the two
// nearest elevation rings and the two nearest azimuths within each,
// then scales by gain. elevationDeg in [-90,90], azimuthDeg in
// [0,360).
func (d *Dataset) Query(elevationDeg, azimuthDeg, gain float32) Result {
	var res Result
	if len(d.Elevations) == 0 {
		return res
	}

	elo, ehi, et := d.straddleElevations(elevationDeg)

	cLeft, cRight, cdl, cdr := interpolateRing(&d.Elevations[elo], azimuthDeg)
	fLeft, fRight, fdl, fdr := interpolateRing(&d.Elevations[ehi], azimuthDeg)

	for i := 0; i < IRLength; i++ {
		res.Left[i] = (cLeft[i]*(1-et) + fLeft[i]*et) * gain
		res.Right[i] = (cRight[i]*(1-et) + fRight[i]*et) * gain
	}
	res.DelayLeft = lerpInt(cdl, fdl, et)
	res.DelayRight = lerpInt(cdr, fdr, et)
	return res
}

// QueryDiffuse blends a point-source query toward a diffuse response
// (impulse at t=0, flat over direction) with weight sin(spread/2).
func (d *Dataset) QueryDiffuse(elevationDeg, azimuthDeg, gain, spread float32) Result {
	point := d.Query(elevationDeg, azimuthDeg, gain)
	w := float32(math.Sin(float64(spread) / 2))
	if w <= 0 {
		return point
	}
	// Diffuse target: an impulse at t=0, flat over direction (equal
	// energy to both ears at zero delay), blended in with weight w.
	var out Result
	for i := 0; i < IRLength; i++ {
		out.Left[i] = point.Left[i] * (1 - w)
		out.Right[i] = point.Right[i] * (1 - w)
	}
	out.Left[0] += gain * w
	out.Right[0] += gain * w
	out.DelayLeft, out.DelayRight = point.DelayLeft, point.DelayRight
	return out
}

func lerpInt(a, b int, t float32) int {
	return int(float32(a)*(1-t) + float32(b)*t + 0.5)
}

// straddleElevations finds the two elevation ring indices bracketing
// elevationDeg and the interpolation weight between them.
func (d *Dataset) straddleElevations(elevationDeg float32) (lo, hi int, t float32) {
	n := len(d.Elevations)
	if n == 1 {
		return 0, 0, 0
	}
	for i := 0; i < n-1; i++ {
		e0, e1 := d.Elevations[i].ElevationDeg, d.Elevations[i+1].ElevationDeg
		if elevationDeg >= e0 && elevationDeg <= e1 {
			span := e1 - e0
			if span == 0 {
				return i, i, 0
			}
			return i, i + 1, (elevationDeg - e0) / span
		}
	}
	if elevationDeg < d.Elevations[0].ElevationDeg {
		return 0, 0, 0
	}
	return n - 1, n - 1, 0
}

// interpolateRing bilinearly blends the two azimuth neighbors within
// a single elevation ring.
func interpolateRing(e *Elevation, azimuthDeg float32) (left, right [IRLength]float32, dl, dr int) {
	if e.AzimuthCount == 0 {
		return
	}
	step := 360.0 / float64(e.AzimuthCount)
	az := wrapAngle(float64(azimuthDeg), 360)
	idx := az / step
	i0 := int(idx) % e.AzimuthCount
	i1 := (i0 + 1) % e.AzimuthCount
	t := float32(idx - math.Floor(idx))

	l0, r0, dl0, dr0 := e.irAt(i0)
	l1, r1, dl1, dr1 := e.irAt(i1)
	for i := 0; i < IRLength; i++ {
		left[i] = l0[i]*(1-t) + l1[i]*t
		right[i] = r0[i]*(1-t) + r1[i]*t
	}
	return left, right, lerpInt(dl0, dl1, t), lerpInt(dr0, dr1, t)
}

// maxEarDelay is the largest delay value the MinPHR00 format allows
// (the MinPHR00 format caps per-ear delay at 127 samples).
const maxEarDelay = 127

// historyLen is how many samples of per-voice playback history the
// convolution state must retain: enough for the longest IR plus the
// largest possible ear delay.
const historyLen = IRLength + maxEarDelay

// Voice is the per-voice convolution state: a circular sample history
// plus the currently-active and fading-out coefficient sets.
type Voice struct {
	history    [historyLen]float32
	writePos   int
	cur        Result
	prevLeft, prevRight   [IRLength]float32
	prevDL, prevDR        int
	fadeRemaining, fadeLen int
}

// NewVoice returns a zeroed convolution state.
func NewVoice() *Voice { return &Voice{} }

// SetTarget installs a new IR/delay pair, starting a crossfade from
// whatever was previously active over fadeSamples (typically one
// slice).
func (v *Voice) SetTarget(r Result, fadeSamples int) {
	v.prevLeft, v.prevRight = v.cur.Left, v.cur.Right
	v.prevDL, v.prevDR = v.cur.DelayLeft, v.cur.DelayRight
	v.cur = r
	v.fadeLen = fadeSamples
	v.fadeRemaining = fadeSamples
}

// Process convolves n input samples, writing interleaved (left, right)
// pairs to out (len(out) >= 2*n).
func (v *Voice) Process(in []float32, out []float32, n int) {
	for i := 0; i < n; i++ {
		v.history[v.writePos] = in[i]

		left, right := v.tap(v.cur.Left[:], v.cur.Right[:], v.cur.DelayLeft, v.cur.DelayRight)
		if v.fadeRemaining > 0 {
			pl, pr := v.tap(v.prevLeft[:], v.prevRight[:], v.prevDL, v.prevDR)
			t := float32(v.fadeLen-v.fadeRemaining) / float32(v.fadeLen)
			left = pl*(1-t) + left*t
			right = pr*(1-t) + right*t
			v.fadeRemaining--
		}

		out[2*i] = left
		out[2*i+1] = right
		v.writePos = (v.writePos + 1) % historyLen
	}
}

// tap evaluates the FIR dot product against the delayed history ring
// for both ears of one coefficient set (current or fading-out).
func (v *Voice) tap(irLeft, irRight []float32, delayL, delayR int) (float32, float32) {
	var left, right float32
	for k := 0; k < IRLength; k++ {
		idxL := (v.writePos - delayL - k + historyLen*4) % historyLen
		idxR := (v.writePos - delayR - k + historyLen*4) % historyLen
		left += irLeft[k] * v.history[idxL]
		right += irRight[k] * v.history[idxR]
	}
	return left, right
}
