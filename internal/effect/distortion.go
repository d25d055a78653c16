package effect

import (
	"github.com/kcat/openal-soft-sub004/internal/biquad"
)

// DistortionProps configures a bandpass-shaped waveshaper: a pre-eq
// bandpass isolates the harmonics-generating band, a tanh-style
// waveshaper adds edge, and a post lowpass tames aliasing/fizz.
type DistortionProps struct {
	Edge        float32 // 0..1 drive amount
	Gain        float32
	LowpassHz   float32
	EqCenterHz  float32
	EqBandwidth float32 // octaves
}

// DistortionEffect implements the classic pre-filter -> waveshape ->
// post-filter distortion chain.
type DistortionEffect struct {
	sampleRate float32
	pre, post  biquad.State
	drive      float32
	gain       float32
}

func (d *DistortionEffect) DeviceUpdate(sampleRate float32) {
	d.sampleRate = sampleRate
}

func (d *DistortionEffect) Update(props any) {
	p, ok := props.(DistortionProps)
	if !ok {
		return
	}
	fs := d.sampleRate
	if fs <= 0 {
		fs = 44100
	}
	d.pre.SetParams(biquad.BandPass, 1, clampF(p.EqCenterHz/fs, 0.001, 0.45), biquad.RcpQFromBandwidth(p.EqCenterHz/fs, p.EqBandwidth))
	d.post.SetParams(biquad.LowPass, 1, clampF(p.LowpassHz/fs, 0.001, 0.45), 0.707)
	d.drive = 1 + p.Edge*40
	d.gain = p.Gain
}

func (d *DistortionEffect) Process(n int, in, out []float32) {
	d.pre.Process(out, in, n)
	for i := 0; i < n; i++ {
		x := out[i] * d.drive
		out[i] = fastTanh(x) * d.gain
	}
	d.post.Process(out, out, n)
}
