// Package voice implements the mixer-side per-source processing chain:
// snapshot -> pitch-adjusted resample -> direct-path filter -> gain-
// ramped mix to the dry bus and any active auxiliary sends -> cursor
// advance / loop / stop / tail flush.
package voice

import (
	"github.com/kcat/openal-soft-sub004/internal/biquad"
	"github.com/kcat/openal-soft-sub004/internal/handover"
	"github.com/kcat/openal-soft-sub004/internal/pan"
	"github.com/kcat/openal-soft-sub004/internal/resample"
)

// MaxSends is the largest number of simultaneous auxiliary sends a
// source may have active (NSENDS).
const MaxSends = 4

// MaxOutputChannels bounds the dry-bus gain vector width (up to
// third-order ambisonic, the widest decode target).
const MaxOutputChannels = 16

// GainRampEpsilon is the per-slice convergence threshold below which a
// current gain is snapped directly to its target instead of
// continuing to ramp (data-model invariant: ramps only move toward
// target, never overshoot).
const GainRampEpsilon = 1e-6

// pad is the left/right history padding carried around every channel's
// working buffer, sized to the widest resample kernel's requirement
// (resample.MaxPadding covers both History and Future for every Kind).
const pad = resample.MaxPadding

// maxSliceFrames bounds the per-call working-buffer size; callers pass
// slice <= this (the device's update size, fixed at open time).
const maxSliceFrames = 4096

// State enumerates a source's playback state, mirrored from the
// owning al.Source at snapshot time.
type State int

const (
	Initial State = iota
	Playing
	Paused
	Stopped
)

// FilterParams is the (gain, gainHF, HFReference, gainLF, LFReference)
// tuple a direct-path or send-path filter is described by; Voice turns
// it into biquad coefficients once per snapshot.
type FilterParams struct {
	Gain        float32
	GainHF      float32
	HFReference float32
	GainLF      float32
	LFReference float32
}

// SendTarget names one auxiliary send: which effect slot's input bus
// receives it and with what filter.
type SendTarget struct {
	Active bool
	Slot   int // index into the device's slot array; meaningless if !Active
	Filter FilterParams
}

// Buffer is one queued PCM buffer, already decoded to planar f32 by
// the caller (the al package owns format-specific decode of
// u8/s16/s32/µ-law/ADPCM source data).
type Buffer struct {
	Channels           [][]float32 // one slice per source channel
	Frames             int
	LoopStart, LoopEnd int // sample-frame indices; LoopEnd==0 means "no loop region"
}

// Props is the immutable, wholesale-replaced snapshot of a source's
// mixer-relevant properties, published via handover.Published so the
// mixer never observes a torn update mid-mutation.
type Props struct {
	State   State
	Queue   []Buffer
	Looping bool

	Pitch        float32 // source pitch multiplier
	DopplerPitch float32 // precomputed doppler multiplier (pan.Doppler), applied on top of Pitch
	Gain         float32

	DirectChannels bool // true: skip spatialization; every source channel is mixed into output channel 0 only

	// ToListener is the unit vector from source to listener, in
	// listener space. SourceFacing is the source's forward orientation
	// in the same space; both feed pan.ConeGain.
	ToListener   pan.Vec3
	SourceFacing pan.Vec3
	Spread       float32

	Distance      float32
	RefDistance   float32
	MaxDistance   float32
	RolloffFactor float32
	DistanceModel pan.DistanceModel

	ConeInner     float32
	ConeOuter     float32
	ConeOuterGain float32

	DirectFilter FilterParams
	Sends        [MaxSends]SendTarget

	OutputChannels int // device dry-bus width for this snapshot

	// DecodeMatrix maps a direction and spread to per-output channel
	// gains (the al package supplies one returning the spread-weighted
	// SH coefficients for its ambisonic dry bus); nil means direct
	// output with no spatialization (matches DirectChannels).
	DecodeMatrix func(dir pan.Vec3, spread float32) []float32

	SourceRate float32 // the buffer's native sample rate
}

// Voice is the mixer-side counterpart of a Playing source (data model
// §3). Allocated on Play, recycled into a free list on Stop or natural
// end.
type Voice struct {
	props *handover.Published[Props]

	sourceGen uint64 // snapshot of the owning source's generation; must match its Voice.generation at Process time

	cursorFrame int    // integer sample-frame index into the current buffer
	cursorFrac  uint32 // fractional position, 1/resample.FractionOne units
	queueIdx    int    // which Buffer in the current snapshot's Queue we're reading from

	// work holds `pad` samples of left history, then up to
	// maxSliceFrames of freshly-read/resampled input, then `pad`
	// samples of right padding -- refilled every Process call so the
	// resample kernels never need C-style negative indexing.
	work [][]float32 // one per source channel

	// mixBuf holds one channel's resampled/filtered output for the
	// current slice, reused across Process calls (sized to
	// maxSliceFrames at construction so the hot path never allocates).
	mixBuf []float32

	resamplers    []resample.State // one per source channel
	directFilters []biquad.State   // one per source channel
	sendFilters   [MaxSends][]biquad.State

	currentGain     [MaxOutputChannels]float32
	targetGain      [MaxOutputChannels]float32
	sendCurrentGain [MaxSends][MaxOutputChannels]float32
	sendTargetGain  [MaxSends][MaxOutputChannels]float32

	idle      bool // true once the tail-flush slice has completed
	flushLeft int  // remaining tail-flush slices (0 or 1)
}

// NewVoice allocates a Voice with channelCount source channels, bound
// to initial.
func NewVoice(initial *Props, channelCount int) *Voice {
	v := &Voice{
		props:         handover.NewPublished(initial),
		work:          make([][]float32, channelCount),
		mixBuf:        make([]float32, maxSliceFrames),
		resamplers:    make([]resample.State, channelCount),
		directFilters: make([]biquad.State, channelCount),
	}
	for c := range v.work {
		v.work[c] = make([]float32, pad+maxSliceFrames+pad)
	}
	for s := range v.sendFilters {
		v.sendFilters[s] = make([]biquad.State, channelCount)
	}
	return v
}

// Publish installs a new property snapshot, recording the owning
// source's generation, and returns the previous snapshot for the
// caller to hand to a handover.Reclaimer.
func (v *Voice) Publish(next *Props, sourceGeneration uint64) *Props {
	v.sourceGen = sourceGeneration
	return v.props.Publish(next)
}

// Generation reports the source generation this voice was last bound
// to, for the data-model invariant that V.generation matches
// V.source.generation at snapshot time.
func (v *Voice) Generation() uint64 { return v.sourceGen }

// Idle reports whether the voice has finished its tail flush and can
// be returned to the free list.
func (v *Voice) Idle() bool { return v.idle }

// Reset clears a recycled voice's playback and filter state before
// it's reassigned to a new source.
func (v *Voice) Reset() {
	v.cursorFrame, v.cursorFrac, v.queueIdx = 0, 0, 0
	v.idle, v.flushLeft = false, 0
	for c := range v.directFilters {
		v.directFilters[c].Clear()
	}
	for s := range v.sendFilters {
		for c := range v.sendFilters[s] {
			v.sendFilters[s][c].Clear()
		}
	}
	v.currentGain = [MaxOutputChannels]float32{}
	v.targetGain = [MaxOutputChannels]float32{}
}

// pitchIncrement converts a pitch multiplier and rate ratio into a
// 1/FractionOne fixed-point per-sample increment; 0 means "too slow to
// advance," handled by the caller as silence.
func pitchIncrement(pitch, srcRate, dstRate float32) uint32 {
	if dstRate <= 0 {
		return 0
	}
	ratio := float64(pitch) * float64(srcRate) / float64(dstRate)
	inc := ratio*float64(resample.FractionOne) + 0.5
	if inc < 1 {
		return 0
	}
	return uint32(inc)
}

// kernelForRatio picks the resample kernel a voice should use for the
// current pitch ratio: exact unity playback uses the bit-exact copy
// path, everything else uses the cubic kernel. Process always takes
// its kernel from here: the Linear and bsinc kernels are never
// selected, and the general/resampler setting of internal/config has
// no effect on voices.
func kernelForRatio(inc uint32) resample.Kind {
	if inc == resample.FractionOne {
		return resample.Point
	}
	return resample.Cubic
}

// dryTargetGains computes the per-output-channel target gain vector
// from distance/cone attenuation, source gain, and panning.
func dryTargetGains(p *Props, out []float32) {
	for i := range out {
		out[i] = 0
	}
	atten := pan.Attenuation(p.DistanceModel, p.Distance, p.RefDistance, p.MaxDistance, p.RolloffFactor)
	cone := pan.ConeGain(p.SourceFacing, p.ToListener, p.ConeInner, p.ConeOuter, p.ConeOuterGain)
	gain := p.Gain * atten * cone * p.DirectFilter.Gain

	if p.DirectChannels || p.DecodeMatrix == nil {
		if len(out) > 0 {
			out[0] = gain
		}
		return
	}
	// Direction for panning is listener->source, the negation of
	// ToListener (source->listener).
	dir := pan.Vec3{X: -p.ToListener.X, Y: -p.ToListener.Y, Z: -p.ToListener.Z}
	gains := p.DecodeMatrix(dir, p.Spread)
	for i := 0; i < len(out) && i < len(gains); i++ {
		out[i] = gains[i] * gain
	}
}

// rampToward moves current 1/slice of the remaining distance toward
// target per slice, snapping once within GainRampEpsilon, without
// overshoot (data-model gain-ramp invariant). The gain does not reach
// its target within one slice, and Process applies it as a constant
// across the slice, not as a per-sample ramp.
func rampToward(current, target []float32, n, slice int) {
	for i := 0; i < n; i++ {
		diff := target[i] - current[i]
		if diff > -GainRampEpsilon && diff < GainRampEpsilon {
			current[i] = target[i]
			continue
		}
		current[i] += diff / float32(slice)
	}
}

// applyDirectFilter updates st's coefficients from fp and filters n
// samples in place; a near-unity filter takes the passthrough path so
// disabled filters stay hot without spending cycles shaping audio.
func applyDirectFilter(st *biquad.State, fp FilterParams, sampleRate float32, buf []float32, n int) {
	if fp.GainHF >= 0.999 && fp.GainLF >= 0.999 {
		st.ProcessPassthrough(buf, n)
		return
	}
	freq := fp.HFReference / sampleRate
	if freq <= 0 || freq >= 0.5 {
		freq = 0.25
	}
	st.SetParams(biquad.HighShelf, fp.GainHF, freq, biquad.RcpQFromSlope(fp.GainHF, 1.0))
	st.Process(buf, buf, n)
}

// Process runs one slice of mixing for this voice: read/resample the
// source, apply the direct-path filter, and gain-ramp mix into dryBus
// and any active send buses. dryBus and sendBuses are planar (one
// []float32 per channel, pre-zeroed by the caller, at least `slice`
// samples long).
func (v *Voice) Process(slice int, dryBus [][]float32, sendBuses [MaxSends][][]float32, sampleRate float32) {
	if v.idle {
		return
	}
	p := v.props.Load()

	if p.State == Paused {
		return
	}
	if p.State == Stopped {
		// Run exactly one more slice to flush the resampler/filter tail,
		// then go idle (termination rule in the voice data model).
		if v.flushLeft > 0 {
			v.idle = true
			return
		}
		v.flushLeft = 1
	}

	if len(p.Queue) == 0 || v.queueIdx >= len(p.Queue) {
		v.idle = true
		return
	}
	buf := p.Queue[v.queueIdx]

	inc := pitchIncrement(p.Pitch*nonZero(p.DopplerPitch, 1), p.SourceRate, sampleRate)
	if inc == 0 {
		return
	}
	kind := kernelForRatio(inc)

	dryTargetGains(p, v.targetGain[:p.OutputChannels])
	for s := range p.Sends {
		if !p.Sends[s].Active {
			continue
		}
		dryTargetGains(p, v.sendTargetGain[s][:p.OutputChannels])
		sendGain := p.Sends[s].Filter.Gain
		for i := range v.sendTargetGain[s][:p.OutputChannels] {
			v.sendTargetGain[s][i] *= sendGain
		}
	}

	// Upper bound on input frames this slice's resample can consume,
	// per the testable property ceil(slice*increment/FractionOne).
	framesNeeded := (slice*int(inc) + resample.FractionOne - 1) >> resample.FractionBits
	if framesNeeded > maxSliceFrames {
		framesNeeded = maxSliceFrames
	}

	mixBuf := v.mixBuf[:slice]
	gainApplied := false

	for c := range buf.Channels {
		if c >= len(v.work) {
			break
		}
		w := v.work[c]

		avail := buf.Frames - v.cursorFrame
		n := framesNeeded
		if n > avail {
			n = avail
		}
		if n < 0 {
			n = 0
		}
		copy(w[pad:pad+n], buf.Channels[c][v.cursorFrame:v.cursorFrame+n])
		for i := pad + n; i < len(w); i++ {
			w[i] = 0
		}

		st := &v.resamplers[c]
		st.Kind = kind
		if inc < resample.FractionOne {
			st.Scale = float64(inc) / float64(resample.FractionOne)
		} else {
			st.Scale = 1
		}
		start := pad - resample.History(kind)
		st.Process(w[start:], int(v.cursorFrac), int(inc), mixBuf)

		applyDirectFilter(&v.directFilters[c], p.DirectFilter, sampleRate, mixBuf, slice)

		if !gainApplied {
			rampToward(v.currentGain[:p.OutputChannels], v.targetGain[:p.OutputChannels], p.OutputChannels, slice)
		}
		for ch := 0; ch < p.OutputChannels && ch < len(dryBus); ch++ {
			g := v.currentGain[ch]
			if g == 0 {
				continue
			}
			bus := dryBus[ch]
			for i := 0; i < slice; i++ {
				bus[i] += mixBuf[i] * g
			}
		}
		for s := range p.Sends {
			if !p.Sends[s].Active {
				continue
			}
			if !gainApplied {
				rampToward(v.sendCurrentGain[s][:p.OutputChannels], v.sendTargetGain[s][:p.OutputChannels], p.OutputChannels, slice)
			}
			for ch := 0; ch < p.OutputChannels && ch < len(sendBuses[s]); ch++ {
				g := v.sendCurrentGain[s][ch]
				if g == 0 {
					continue
				}
				bus := sendBuses[s][ch]
				for i := 0; i < slice; i++ {
					bus[i] += mixBuf[i] * g
				}
			}
		}
		gainApplied = true

		// Carry the tail of this slice's input forward as next slice's
		// left history.
		carry := pad
		if n < carry {
			carry = n
		}
		copy(w[pad-carry:pad], w[pad+n-carry:pad+n])
	}

	advance := uint64(v.cursorFrac) + uint64(inc)*uint64(slice)
	v.cursorFrame += int(advance >> resample.FractionBits)
	v.cursorFrac = uint32(advance & resample.FractionMask)

	if v.cursorFrame >= buf.Frames {
		overshoot := v.cursorFrame - buf.Frames
		if p.Looping && buf.LoopEnd > 0 {
			v.cursorFrame = buf.LoopStart + overshoot
		} else {
			v.queueIdx++
			v.cursorFrame = overshoot
			if v.queueIdx >= len(p.Queue) {
				if p.Looping {
					v.queueIdx = 0
				} else {
					v.flushLeft = 1
				}
			}
		}
	}
}

func nonZero(v, fallback float32) float32 {
	if v == 0 {
		return fallback
	}
	return v
}
