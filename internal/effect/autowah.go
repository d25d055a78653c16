package effect

import (
	"math"

	"github.com/kcat/openal-soft-sub004/internal/biquad"
)

// AutowahProps configures an envelope-followed (not LFO-swept, despite
// the classic name) dynamic bandpass: the input's own amplitude
// envelope drives the bandpass center frequency between a resting and
// peak frequency.
type AutowahProps struct {
	AttackMS   float32
	ReleaseMS  float32
	Resonance  float32 // rcpQ of the swept bandpass
	PeakGain   float32
}

// AutowahEffect tracks the input envelope and retunes a bandpass
// filter's center frequency each sample between a resting ~150Hz and a
// peak near ~3kHz, scaled by PeakGain.
type AutowahEffect struct {
	sampleRate   float32
	attackCoeff  float32
	releaseCoeff float32
	resonance    float32
	peakGain     float32

	envelope float32
	filter   biquad.State
	lastFreq float32
}

const (
	autowahRestFreq = 150
	autowahPeakFreq = 3000
)

func (a *AutowahEffect) DeviceUpdate(sampleRate float32) {
	a.sampleRate = sampleRate
}

func (a *AutowahEffect) Update(props any) {
	p, ok := props.(AutowahProps)
	if !ok {
		return
	}
	fs := float64(a.sampleRate)
	if fs <= 0 {
		fs = 44100
	}
	attackTau := float64(p.AttackMS) / 1000
	releaseTau := float64(p.ReleaseMS) / 1000
	if attackTau <= 0 {
		attackTau = 0.01
	}
	if releaseTau <= 0 {
		releaseTau = 0.1
	}
	a.attackCoeff = float32(math.Exp(-1 / (fs * attackTau)))
	a.releaseCoeff = float32(math.Exp(-1 / (fs * releaseTau)))
	a.resonance = p.Resonance
	a.peakGain = p.PeakGain
}

func (a *AutowahEffect) Process(n int, in, out []float32) {
	fs := a.sampleRate
	if fs <= 0 {
		fs = 44100
	}
	for i := 0; i < n; i++ {
		x := in[i]
		level := absf32(x)
		var coeff float32
		if level > a.envelope {
			coeff = a.attackCoeff
		} else {
			coeff = a.releaseCoeff
		}
		a.envelope = coeff*a.envelope + (1-coeff)*level

		freq := autowahRestFreq + (autowahPeakFreq-autowahRestFreq)*clampF(a.envelope*a.peakGain, 0, 1)
		if absf32(freq-a.lastFreq) > 1 {
			norm := freq / fs
			if norm <= 0 || norm >= 0.5 {
				norm = 0.25
			}
			a.filter.SetParams(biquad.BandPass, 1, norm, a.resonance)
			a.lastFreq = freq
		}
		out[i] = a.filter.ProcessOne(x)
	}
}
