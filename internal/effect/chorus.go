package effect

import "math"

// ChorusWaveform selects the LFO shape modulating the delay tap.
type ChorusWaveform int

const (
	ChorusSine ChorusWaveform = iota
	ChorusTriangle
)

// ChorusProps configures the single-tap modulated delay (also used for
// flanger, which is the same topology at shorter delay/higher depth).
type ChorusProps struct {
	Waveform ChorusWaveform
	Phase    float32 // degrees, offset between the (unused) second channel and this one
	Rate     float32 // Hz
	Depth    float32 // 0..1, modulation depth as a fraction of Delay
	Feedback float32 // -1..1
	Delay    float32 // seconds, center delay
}

// ChorusEffect implements a single modulated delay tap with feedback.
type ChorusEffect struct {
	sampleRate float32
	buf        []float32
	pos        int

	waveform ChorusWaveform
	lfoPhase float32
	lfoInc   float32
	depth    float32
	feedback float32
	delaySamples float32
}

func (c *ChorusEffect) DeviceUpdate(sampleRate float32) {
	c.sampleRate = sampleRate
	n := int(sampleRate * 0.02) // 20ms is plenty for chorus/flanger depth+delay
	if n < 8 {
		n = 8
	}
	c.buf = make([]float32, n)
}

func (c *ChorusEffect) Update(props any) {
	p, ok := props.(ChorusProps)
	if !ok {
		return
	}
	c.waveform = p.Waveform
	c.lfoInc = p.Rate / c.sampleRate
	c.depth = clampF(p.Depth, 0, 1)
	c.feedback = clampF(p.Feedback, -1, 1)
	c.delaySamples = p.Delay * c.sampleRate
}

func (c *ChorusEffect) lfo() float32 {
	phase := c.lfoPhase - float32(math.Floor(float64(c.lfoPhase)))
	switch c.waveform {
	case ChorusTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return fastSin(2 * math.Pi * phase)
	}
}

func (c *ChorusEffect) Process(n int, in, out []float32) {
	bufLen := len(c.buf)
	if bufLen == 0 {
		for i := 0; i < n; i++ {
			out[i] = 0
		}
		return
	}
	for i := 0; i < n; i++ {
		mod := c.lfo() * c.depth * c.delaySamples
		tap := c.delaySamples + mod
		if tap < 0 {
			tap = 0
		}
		if tap > float32(bufLen-2) {
			tap = float32(bufLen - 2)
		}

		base := int(tap)
		frac := tap - float32(base)
		i0 := (c.pos - base + bufLen*2) % bufLen
		i1 := (i0 - 1 + bufLen) % bufLen
		delayed := c.buf[i0] + frac*(c.buf[i1]-c.buf[i0])

		fresh := in[i] + c.feedback*delayed
		c.buf[c.pos] = fresh
		out[i] = delayed

		c.pos = (c.pos + 1) % bufLen
		c.lfoPhase += c.lfoInc
		if c.lfoPhase >= 1 {
			c.lfoPhase -= float32(math.Floor(float64(c.lfoPhase)))
		}
	}
}
