package effect

import "math"

// stftSize/stftOverlap set a 1024-sample analysis window with 4x
// overlap (256-sample hop).
const (
	stftSize    = 1024
	stftOverlap = 4
	stftHop     = stftSize / stftOverlap
)

// PitchShifterProps configures the phase-vocoder pitch shifter.
type PitchShifterProps struct {
	// Semitones is the shift amount; ratio = 2^(semitones/12).
	Semitones float32
}

// PitchShifterEffect implements a Bernsee-style phase-vocoder pitch
// shifter: STFT analysis, per-bin phase-difference-derived true
// frequency estimate, frequency scaling by the pitch ratio, synthesis
// phase accumulation, and overlap-add resynthesis. The first
// stftSize-stftHop samples of output are FIFO fill latency (768
// samples = 1024-256) before steady-state shifted output emerges.
type PitchShifterEffect struct {
	sampleRate float32
	ratio      float32

	inFIFO  [stftSize]float32
	outFIFO [stftSize]float32
	fifoPos int

	window [stftSize]float32

	lastPhase [stftSize/2 + 1]float32
	sumPhase  [stftSize/2 + 1]float32

	analysisMag   [stftSize/2 + 1]float32
	analysisFreq  [stftSize/2 + 1]float32
	synthMag      [stftSize/2 + 1]float32
	synthFreq     [stftSize/2 + 1]float32

	outputAccum [stftSize]float32

	re, im [stftSize]float64
}

func (p *PitchShifterEffect) DeviceUpdate(sampleRate float32) {
	p.sampleRate = sampleRate
	for i := range p.window {
		// Hann window, applied at analysis and resynthesis. The squared
		// window sums to 1.5 at 4x overlap, so resynthesis scales by 2/3
		// for unity overlap-add gain.
		p.window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(stftSize-1)))
	}
}

func (p *PitchShifterEffect) Update(props any) {
	pr, ok := props.(PitchShifterProps)
	if !ok {
		return
	}
	p.ratio = float32(math.Pow(2, float64(pr.Semitones)/12))
}

// fftRadix2 performs an in-place radix-2 Cooley-Tukey FFT (forward if
// inverse is false) on re/im, whose length must be a power of two.
func fftRadix2(re, im []float64, inverse bool) {
	n := len(re)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		ang := 2 * math.Pi / float64(length)
		if inverse {
			ang = -ang
		}
		wr, wi := math.Cos(ang), math.Sin(ang)
		for i := 0; i < n; i += length {
			curWr, curWi := 1.0, 0.0
			for j := 0; j < length/2; j++ {
				uRe, uIm := re[i+j], im[i+j]
				vRe := re[i+j+length/2]*curWr - im[i+j+length/2]*curWi
				vIm := re[i+j+length/2]*curWi + im[i+j+length/2]*curWr
				re[i+j] = uRe + vRe
				im[i+j] = uIm + vIm
				re[i+j+length/2] = uRe - vRe
				im[i+j+length/2] = uIm - vIm
				nwr := curWr*wr - curWi*wi
				nwi := curWr*wi + curWi*wr
				curWr, curWi = nwr, nwi
			}
		}
	}
	if inverse {
		for i := range re {
			re[i] /= float64(n)
			im[i] /= float64(n)
		}
	}
}

func (p *PitchShifterEffect) Process(n int, in, out []float32) {
	fs := float64(p.sampleRate)
	if fs <= 0 {
		fs = 44100
	}
	freqPerBin := fs / float64(stftSize)
	expectedPhaseInc := 2 * math.Pi * float64(stftHop) / float64(stftSize)

	for i := 0; i < n; i++ {
		// shift the FIFO and insert the new sample at the end
		copy(p.inFIFO[:stftSize-1], p.inFIFO[1:])
		p.inFIFO[stftSize-1] = in[i]

		out[i] = p.outFIFO[0]
		copy(p.outFIFO[:stftSize-1], p.outFIFO[1:])
		p.outFIFO[stftSize-1] = 0

		p.fifoPos++
		if p.fifoPos < stftHop {
			continue
		}
		p.fifoPos = 0

		for k := 0; k < stftSize; k++ {
			p.re[k] = float64(p.inFIFO[k] * p.window[k])
			p.im[k] = 0
		}
		fftRadix2(p.re[:], p.im[:], false)

		for k := 0; k <= stftSize/2; k++ {
			re, im := p.re[k], p.im[k]
			magn := math.Sqrt(re*re + im*im)
			phase := math.Atan2(im, re)

			delta := phase - float64(p.lastPhase[k])
			p.lastPhase[k] = float32(phase)

			delta -= float64(k) * expectedPhaseInc
			qpd := int(delta / math.Pi)
			if qpd >= 0 {
				qpd += qpd & 1
			} else {
				qpd -= qpd & 1
			}
			delta -= math.Pi * float64(qpd)

			deviation := stftOverlap * delta / (2 * math.Pi)
			trueFreq := float64(k)*freqPerBin + deviation*freqPerBin

			p.analysisMag[k] = float32(magn)
			p.analysisFreq[k] = float32(trueFreq)
		}

		for k := range p.synthMag {
			p.synthMag[k] = 0
			p.synthFreq[k] = 0
		}
		for k := 0; k <= stftSize/2; k++ {
			target := int(float32(k) * p.ratio)
			if target <= stftSize/2 && target >= 0 {
				p.synthMag[target] += p.analysisMag[k]
				p.synthFreq[target] = p.analysisFreq[k] * p.ratio
			}
		}

		for k := 0; k <= stftSize/2; k++ {
			deviation := (float64(p.synthFreq[k]) - float64(k)*freqPerBin) / freqPerBin
			delta := 2 * math.Pi * deviation / float64(stftOverlap)
			delta += float64(k) * expectedPhaseInc
			p.sumPhase[k] += float32(delta)
			phase := float64(p.sumPhase[k])
			p.re[k] = float64(p.synthMag[k]) * math.Cos(phase)
			p.im[k] = float64(p.synthMag[k]) * math.Sin(phase)
		}
		for k := stftSize/2 + 1; k < stftSize; k++ {
			p.re[k] = p.re[stftSize-k]
			p.im[k] = -p.im[stftSize-k]
		}

		fftRadix2(p.re[:], p.im[:], true)

		const windowScale = 8.0 / (3 * stftOverlap)
		for k := 0; k < stftSize; k++ {
			p.outputAccum[k] += float32(p.re[k]) * p.window[k] * windowScale
		}
		copy(p.outFIFO[:stftSize-stftHop], p.outputAccum[stftHop:])
		copy(p.outputAccum[:stftSize-stftHop], p.outputAccum[stftHop:])
		for k := stftSize - stftHop; k < stftSize; k++ {
			p.outputAccum[k] = 0
		}
	}
}
