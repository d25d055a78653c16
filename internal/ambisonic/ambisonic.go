// Package ambisonic implements the ambisonic-to-speaker decoder: a
// matrix multiply from an ACN-ordered,
// N3D-normalized ambisonic bus of up to order 3 (16 channels) to a
// target speaker layout, with an optional dual-band (Linkwitz-Riley)
// split so low and high frequency content can use different decode
// matrices.
package ambisonic

import "math"

// MaxAmbiChannels is 16: (order 3 + 1)^2 ACN channels.
const MaxAmbiChannels = 16

// OrderChannels returns the number of ACN channels for a given
// ambisonic order (0..3).
func OrderChannels(order int) int {
	return (order + 1) * (order + 1)
}

// Matrix is an M (speakers) x N (ambisonic channels) decode matrix,
// row-major: Matrix[speaker][ambiChannel].
type Matrix [][]float32

// NewMatrix allocates a zeroed M x N matrix.
func NewMatrix(speakers, ambiChannels int) Matrix {
	m := make(Matrix, speakers)
	for i := range m {
		m[i] = make([]float32, ambiChannels)
	}
	return m
}

// Decode multiplies a single ambisonic coefficient vector (len ==
// columns of m) by the decode matrix, producing one gain per speaker.
// This is the same matrix multiply used by the block decode below.
func (m Matrix) Decode(ambi []float32) []float32 {
	out := make([]float32, len(m))
	m.DecodeInto(ambi, out)
	return out
}

// DecodeInto is the allocation-free form of Decode, for use on the
// mixer hot path.
func (m Matrix) DecodeInto(ambi []float32, out []float32) {
	for s, row := range m {
		var acc float32
		n := len(row)
		if n > len(ambi) {
			n = len(ambi)
		}
		for c := 0; c < n; c++ {
			acc += row[c] * ambi[c]
		}
		out[s] = acc
	}
}

// firstOrderUpsampleScale holds the order-dependent upsampling scale
// factors used to adapt first-order B-format content to a higher-order
// decoder: W, X/Y/Z get scaled independently so that a
// first-order-authored signal decodes with the correct loudness
// through a higher-order matrix.
var firstOrderUpsampleScale = struct {
	W, XYZ float32
}{
	W:   float32(math.Sqrt(1.5)),
	XYZ: float32(math.Sqrt(2)),
}

// UpsampleFirstOrder scales a first-order (4 channel: W,Y,Z,X) signal
// in place so it can be decoded through a higher-order matrix without
// a loudness jump.
func UpsampleFirstOrder(wyzx []float32) {
	if len(wyzx) < 1 {
		return
	}
	wyzx[0] *= firstOrderUpsampleScale.W
	for i := 1; i < len(wyzx) && i < 4; i++ {
		wyzx[i] *= firstOrderUpsampleScale.XYZ
	}
}

// LRSplitter is a second-order crossover: the low band is two cascaded
// one-pole lowpass stages (-12dB/oct), and the high band is the input
// minus the low band, so the two bands sum back to the input.
// One instance is kept per ambisonic input channel in dual-band mode.
type LRSplitter struct {
	lp1, lp2 onePole
	hp1, hp2 onePole
}

type onePole struct {
	a, state float32
}

func (p *onePole) lowpass(x float32) float32 {
	p.state += p.a * (x - p.state)
	return p.state
}

func (p *onePole) highpass(x float32) float32 {
	lp := p.lowpass(x)
	return x - lp
}

// NewLRSplitter builds a splitter for the given normalized crossover
// frequency f = fc/fs in (0, 0.5).
func NewLRSplitter(f float32) *LRSplitter {
	// First-order coefficient from a one-pole RC lowpass approximation,
	// cascaded twice for the low band's 2nd-order slope.
	a := twoPoleCoeff(f)
	return &LRSplitter{
		lp1: onePole{a: a}, lp2: onePole{a: a},
		hp1: onePole{a: a}, hp2: onePole{a: a},
	}
}

func twoPoleCoeff(f float32) float32 {
	w := 2 * math.Pi * float64(f)
	return float32(1 - math.Exp(-w))
}

// Split separates n samples of src into lo and hi bands. lo + hi
// reconstructs src (within numerical tolerance) at the crossover.
func (s *LRSplitter) Split(src, lo, hi []float32, n int) {
	for i := 0; i < n; i++ {
		x := src[i]
		l := s.lp2.lowpass(s.lp1.lowpass(x))
		h := x - l
		lo[i] = l
		hi[i] = h
	}
}

// defaultMaxSliceFrames bounds the decoder's preallocated scratch
// buffers; DecodeSlice is called with n <= the device's fixed slice
// size, which in practice never exceeds this (matches
// internal/voice's own maxSliceFrames ceiling).
const defaultMaxSliceFrames = 4096

// Decoder owns the full decode pipeline: single-band or dual-band decode
// from an ambisonic dry bus to the device's speaker channels.
type Decoder struct {
	Single   Matrix
	Dual     bool
	Low      Matrix
	High     Matrix
	crossFHz float32
	sampleFq float32
	splitter []*LRSplitter // one per ambisonic input channel

	// Scratch buffers for DecodeSlice/decodeSingleBand, preallocated at
	// construction so the per-slice decode never allocates.
	frame   []float32
	decoded []float32
	lowBus  [][]float32
	highBus [][]float32
}

// NewSingleBand builds a one-matrix decoder sized for up to
// defaultMaxSliceFrames frames per DecodeSlice call.
func NewSingleBand(m Matrix) *Decoder {
	d := &Decoder{Single: m}
	d.allocScratch(len(m), 0)
	return d
}

// NewDualBand builds a decoder with independent low/high band
// matrices and a per-ambi-channel Linkwitz-Riley splitter at the given
// crossover frequency (Hz) and sample rate.
func NewDualBand(low, high Matrix, crossoverHz, sampleRate float32) *Decoder {
	ambiChans := len(low[0])
	splitters := make([]*LRSplitter, ambiChans)
	f := crossoverHz / sampleRate
	for i := range splitters {
		splitters[i] = NewLRSplitter(f)
	}
	d := &Decoder{
		Dual: true, Low: low, High: high,
		crossFHz: crossoverHz, sampleFq: sampleRate,
		splitter: splitters,
	}
	d.allocScratch(len(low), ambiChans)
	return d
}

func (d *Decoder) allocScratch(speakers, ambiChans int) {
	if ambiChans == 0 {
		if d.Single != nil {
			ambiChans = len(d.Single[0])
		}
	}
	d.frame = make([]float32, ambiChans)
	d.decoded = make([]float32, speakers)
	if d.Dual {
		d.lowBus = make([][]float32, ambiChans)
		d.highBus = make([][]float32, ambiChans)
		for c := range d.lowBus {
			d.lowBus[c] = make([]float32, defaultMaxSliceFrames)
			d.highBus[c] = make([]float32, defaultMaxSliceFrames)
		}
	}
}

// DecodeSlice decodes n frames of an interleaved-by-channel ambisonic
// bus (ambi[channel] is a []float32 of length >= n) into the device's
// speaker bus (out[speaker], same length convention), accumulating
// additively so multiple decode calls within a slice (e.g. a wet bus
// on top of the dry bus) compose correctly.
func (d *Decoder) DecodeSlice(ambi [][]float32, out [][]float32, n int) {
	if !d.Dual {
		decodeSingleBand(d.Single, ambi, out, n, d.frame, d.decoded)
		return
	}

	for c := range ambi {
		d.splitter[c].Split(ambi[c], d.lowBus[c][:n], d.highBus[c][:n], n)
	}
	decodeSingleBand(d.Low, d.lowBus, out, n, d.frame, d.decoded)
	decodeSingleBand(d.High, d.highBus, out, n, d.frame, d.decoded)
}

func decodeSingleBand(m Matrix, ambi [][]float32, out [][]float32, n int, frame, decoded []float32) {
	for i := 0; i < n; i++ {
		for c := range ambi {
			frame[c] = ambi[c][i]
		}
		m.DecodeInto(frame, decoded)
		for s := range out {
			out[s][i] += decoded[s]
		}
	}
}
