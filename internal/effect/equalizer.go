package effect

import "github.com/kcat/openal-soft-sub004/internal/biquad"

// EqualizerProps configures the four-band equalizer: low shelf, two
// peaking bands, high shelf.
type EqualizerProps struct {
	LowGain   float32
	LowCutoff float32 // Hz

	Mid1Gain   float32
	Mid1Center float32 // Hz
	Mid1Width  float32 // octaves

	Mid2Gain   float32
	Mid2Center float32
	Mid2Width  float32

	HighGain   float32
	HighCutoff float32 // Hz
}

// EqualizerEffect cascades four biquads in series: low shelf -> two
// peaking bands -> high shelf. At unity gains this is transparent
// within -60dB over the audio band, since each
// stage's Cookbook coefficients collapse to an identity filter when
// gain == 1.
type EqualizerEffect struct {
	sampleRate float32
	low, mid1, mid2, high biquad.State
}

func (e *EqualizerEffect) DeviceUpdate(sampleRate float32) {
	e.sampleRate = sampleRate
}

func (e *EqualizerEffect) Update(props any) {
	p, ok := props.(EqualizerProps)
	if !ok {
		return
	}
	fs := e.sampleRate
	if fs <= 0 {
		fs = 44100
	}
	e.low.SetParams(biquad.LowShelf, p.LowGain, p.LowCutoff/fs, biquad.RcpQFromSlope(p.LowGain, 0.75))
	e.mid1.SetParams(biquad.Peaking, p.Mid1Gain, p.Mid1Center/fs, biquad.RcpQFromBandwidth(p.Mid1Center/fs, p.Mid1Width))
	e.mid2.SetParams(biquad.Peaking, p.Mid2Gain, p.Mid2Center/fs, biquad.RcpQFromBandwidth(p.Mid2Center/fs, p.Mid2Width))
	e.high.SetParams(biquad.HighShelf, p.HighGain, p.HighCutoff/fs, biquad.RcpQFromSlope(p.HighGain, 0.75))
}

func (e *EqualizerEffect) Process(n int, in, out []float32) {
	e.low.Process(out, in, n)
	e.mid1.Process(out, out, n)
	e.mid2.Process(out, out, n)
	e.high.Process(out, out, n)
}
