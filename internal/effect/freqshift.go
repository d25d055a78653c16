package effect

import "math"

// hilbertTaps is a short odd-length discrete Hilbert transformer
// (windowed, type-III FIR) used to build an approximate analytic
// signal for single-sideband frequency shifting.
const hilbertTaps = 31

// FrequencyShifterDirection selects which sideband survives.
type FrequencyShifterDirection int

const (
	ShiftUp FrequencyShifterDirection = iota
	ShiftDown
	ShiftBoth
)

// FrequencyShifterProps configures a single-sideband frequency
// shifter: every input frequency component is shifted by a fixed Hz
// offset (unlike a pitch shift, harmonic ratios are not preserved).
type FrequencyShifterProps struct {
	Frequency float32 // Hz, shift amount
	Direction FrequencyShifterDirection
}

// FrequencyShifterEffect modulates an approximate analytic signal
// (built from a discrete Hilbert transformer) against a complex
// exponential at the shift frequency, keeping only the sideband
// selected by Direction.
type FrequencyShifterEffect struct {
	sampleRate float32
	shiftHz    float32
	direction  FrequencyShifterDirection

	hilbert [hilbertTaps]float32
	history [hilbertTaps]float32
	histPos int

	oscPhase float64
}

func hilbertCoeff(i int) float32 {
	k := i - hilbertTaps/2
	if k == 0 {
		return 0
	}
	if k%2 == 0 {
		return 0
	}
	w := 0.54 - 0.46*float32(math.Cos(2*math.Pi*float64(i)/float64(hilbertTaps-1))) // Hamming
	return w * 2 / (float32(math.Pi) * float32(k))
}

func (f *FrequencyShifterEffect) DeviceUpdate(sampleRate float32) {
	f.sampleRate = sampleRate
	for i := 0; i < hilbertTaps; i++ {
		f.hilbert[i] = hilbertCoeff(i)
	}
}

func (f *FrequencyShifterEffect) Update(props any) {
	p, ok := props.(FrequencyShifterProps)
	if !ok {
		return
	}
	f.shiftHz = p.Frequency
	f.direction = p.Direction
}

func (f *FrequencyShifterEffect) Process(n int, in, out []float32) {
	fs := f.sampleRate
	if fs <= 0 {
		fs = 44100
	}
	omega := 2 * math.Pi * float64(f.shiftHz) / float64(fs)

	delayCenter := hilbertTaps / 2

	for i := 0; i < n; i++ {
		f.history[f.histPos] = in[i]

		// imaginary (quadrature) component via the Hilbert FIR
		var imag float32
		for k := 0; k < hilbertTaps; k++ {
			idx := (f.histPos - k + hilbertTaps*2) % hilbertTaps
			imag += f.hilbert[k] * f.history[idx]
		}
		// real component: the same delayed sample the FIR is centered
		// on, so real and imaginary parts align in time.
		real := f.history[(f.histPos-delayCenter+hilbertTaps*2)%hilbertTaps]

		cosT := float32(math.Cos(f.oscPhase))
		sinT := float32(math.Sin(f.oscPhase))

		var y float32
		switch f.direction {
		case ShiftUp:
			y = real*cosT - imag*sinT
		case ShiftDown:
			y = real*cosT + imag*sinT
		default:
			y = real * cosT
		}
		out[i] = y

		f.oscPhase += omega
		if f.oscPhase > math.Pi {
			f.oscPhase -= 2 * math.Pi
		} else if f.oscPhase < -math.Pi {
			f.oscPhase += 2 * math.Pi
		}
		f.histPos = (f.histPos + 1) % hilbertTaps
	}
}
