package effect

import "math"

// reverbLines is the feedback-delay-network width (8 parallel delay
// lines, each through its own damping absorber; their outputs are
// averaged, with no cross-mixing between lines).
const reverbLines = 8

// reverbAllpasses is the number of series diffusion allpasses applied
// before the FDN.
const reverbAllpasses = 4

// ReverbProps configures the EAX-style late reverb network.
type ReverbProps struct {
	Density     float32 // 0..1
	Diffusion   float32 // 0..1
	Gain        float32 // overall wet gain
	DecayTime   float32 // seconds, RT60
	DecayHFRatio float32 // 0.1..2, high-frequency decay relative to DecayTime
	ReflectionsGain float32
	ReflectionsDelay float32 // seconds; not read by ReverbEffect, whose pre-delay is fixed at about 100ms
	LateGain    float32
	LateDelay   float32 // seconds; not read by ReverbEffect
}

type allpassDelay struct {
	buf  []float32
	pos  int
	gain float32
}

func newAllpass(length int, gain float32) allpassDelay {
	return allpassDelay{buf: make([]float32, length), gain: gain}
}

func (a *allpassDelay) process(x float32) float32 {
	bufLen := len(a.buf)
	delayed := a.buf[a.pos]
	y := -a.gain*x + delayed
	a.buf[a.pos] = x + a.gain*delayed
	a.pos = (a.pos + 1) % bufLen
	return y
}

type delayLine struct {
	buf     []float32
	pos     int
	damping float32
	state   float32
	feedback float32
}

func newDelayLine(length int) delayLine {
	return delayLine{buf: make([]float32, length)}
}

func (d *delayLine) process(x float32) float32 {
	bufLen := len(d.buf)
	out := d.buf[d.pos]

	// one-pole damping in the feedback path shapes the decay's HF
	// rolloff (DecayHFRatio < 1 means high frequencies die faster).
	d.state += d.damping * (out - d.state)

	d.buf[d.pos] = x + d.feedback*d.state
	d.pos = (d.pos + 1) % bufLen
	return out
}

// ReverbEffect implements a pre-delay stage, a chain of series
// diffusion allpasses, and 8 independent feedback delay lines fed the
// same diffused signal, whose outputs are averaged (no Hadamard or
// other mixing matrix couples the lines).
type ReverbEffect struct {
	sampleRate float32

	preDelay []float32
	preDelayPos int
	preDelayLen int

	allpass [reverbAllpasses]allpassDelay
	lines   [reverbLines]delayLine

	reflectionsGain float32
	lateGain        float32
	wetGain         float32
}

// reverbLinePrimesMS are relatively-prime-ish delay lengths (in ms)
// for the 8 FDN lines, chosen to avoid flutter echo from common
// factors.
var reverbLinePrimesMS = [reverbLines]float32{29.7, 37.1, 41.3, 47.9, 53.3, 59.3, 61.1, 67.7}
var reverbAllpassMS = [reverbAllpasses]float32{4.3, 6.1, 8.3, 10.7}

func (r *ReverbEffect) DeviceUpdate(sampleRate float32) {
	r.sampleRate = sampleRate
	r.preDelayLen = int(sampleRate * 0.1) // fixed pre-delay of preDelayLen-1 samples (about 100ms)
	if r.preDelayLen < 1 {
		r.preDelayLen = 1
	}
	r.preDelay = make([]float32, r.preDelayLen)

	for i := range r.allpass {
		r.allpass[i] = newAllpass(int(reverbAllpassMS[i]/1000*sampleRate)+1, 0.5)
	}
	for i := range r.lines {
		r.lines[i] = newDelayLine(int(reverbLinePrimesMS[i]/1000*sampleRate) + 1)
	}
}

func (r *ReverbEffect) Update(props any) {
	p, ok := props.(ReverbProps)
	if !ok {
		return
	}
	fs := float64(r.sampleRate)
	if fs <= 0 {
		fs = 44100
	}

	r.reflectionsGain = p.ReflectionsGain
	r.lateGain = p.LateGain
	r.wetGain = p.Gain

	hfRatio := float64(p.DecayHFRatio)
	if hfRatio <= 0 {
		hfRatio = 1
	}
	diffusionGain := clampF(p.Diffusion, 0, 1) * 0.7
	for i := range r.allpass {
		r.allpass[i].gain = diffusionGain
	}

	decay := float64(p.DecayTime)
	if decay <= 0 {
		decay = 1.49
	}
	for i := range r.lines {
		lineSeconds := float64(len(r.lines[i].buf)) / fs
		// feedback gain so the line decays by -60dB in `decay` seconds:
		// feedback^(decay/lineSeconds) = 10^(-3) => feedback = 10^(-3*lineSeconds/decay)
		fb := math.Pow(10, -3*lineSeconds/decay)
		r.lines[i].feedback = float32(fb)
		// damping coefficient scaled so a lower hfRatio damps harder.
		r.lines[i].damping = clampF(float32(hfRatio)*0.9+0.05, 0.01, 0.95)
	}
}

func (r *ReverbEffect) Process(n int, in, out []float32) {
	if r.preDelayLen == 0 {
		copy(out[:n], in[:n])
		return
	}
	for i := 0; i < n; i++ {
		x := in[i]

		r.preDelay[r.preDelayPos] = x
		delayed := r.preDelay[(r.preDelayPos+1)%r.preDelayLen]
		r.preDelayPos = (r.preDelayPos + 1) % r.preDelayLen

		diffused := delayed
		for a := range r.allpass {
			diffused = r.allpass[a].process(diffused)
		}

		var sum float32
		for l := range r.lines {
			sum += r.lines[l].process(diffused)
		}
		late := sum / float32(reverbLines) * r.lateGain

		out[i] = (delayed*r.reflectionsGain + late) * r.wetGain
	}
}
