package al

import (
	"sync/atomic"

	"github.com/kcat/openal-soft-sub004/internal/handover"
	"github.com/kcat/openal-soft-sub004/internal/pan"
	"github.com/kcat/openal-soft-sub004/internal/voice"
)

// queuedBuffer pairs a retained Buffer with the voice-side decoded
// form handed to the mixer; Processed marks entries UnqueueBuffers may
// remove.
type queuedBuffer struct {
	buf       *Buffer
	Processed bool
}

// sourceSend is one auxiliary send slot: the effect slot it feeds (nil
// when inactive) and the filter applied before mixing into it.
type sourceSend struct {
	Slot   *EffectSlot
	Filter FilterParams
}

func toVoiceFilter(fp FilterParams) voice.FilterParams {
	return voice.FilterParams{
		Gain:        fp.Gain,
		GainHF:      fp.GainHF,
		HFReference: fp.HFReference,
		GainLF:      fp.GainLF,
		LFReference: fp.LFReference,
	}
}

// sourceProps is the whole-value snapshot of every Source field that
// Device.Render's buildProps reads to drive a bound voice. Every
// API-thread setter below builds a new copy and publishes it with one
// atomic swap -- the same discipline EffectSlot and Listener use for
// their own state -- so the render loop, which runs buildProps, only
// ever Loads an already-published, immutable snapshot instead of
// racing a setter that might be mutating these fields concurrently.
type sourceProps struct {
	state SourceState

	cachedQueue []voice.Buffer // mixer-ready mirror of queue, rebuilt by refreshQueueSnapshot
	sourceRate  int            // sample rate of the queue's first buffer, cached alongside cachedQueue
	looping     bool

	pitch          float32
	gain           float32
	relative       bool // head-relative: Position/Velocity/Direction are listener-space
	directChannels bool

	position  pan.Vec3
	velocity  pan.Vec3
	direction pan.Vec3 // zero vector: omnidirectional
	spread    float32

	coneInner     float32
	coneOuter     float32
	coneOuterGain float32

	refDistance   float32
	maxDistance   float32
	rolloffFactor float32

	distanceModelOverride DistanceModel
	useDistanceOverride   bool

	directFilter FilterParams
	sends        [voice.MaxSends]sourceSend
}

// Source is one playable sound emitter: a FIFO queue of buffers plus
// every spatialization/filter/gain parameter that feeds a bound
// Voice's per-slice processing.
type Source struct {
	dev   *Device // back-reference for epoch-tagged reclamation; nil for a standalone Source
	props *handover.Published[sourceProps]

	// queue/queueIdx/minGain/maxGain are touched only by API-thread
	// calls (QueueBuffers, UnqueueBuffers, SetGainRange); buildProps
	// never reads them directly, only the published cachedQueue/
	// sourceRate/gain derived from them, so they need no handover.
	queue    []queuedBuffer
	queueIdx int // mirrors the bound voice's consumption point for UnqueueBuffers bookkeeping
	minGain  float32
	maxGain  float32

	generation handover.Generation

	// boundVoice is written by Play (API thread) and cleared by
	// Device.Render on voice idle (mixer thread); an atomic pointer
	// since both sides touch it.
	boundVoice atomic.Pointer[voice.Voice]
}

// NewSource returns a Source with engine defaults: unity gain and
// pitch, gain range [0,1], reference distance 1, max distance
// MaxFloat32-ish large value, rolloff 1, full (2*pi) cone, inverse
// distance model inherited from the listener unless overridden.
func NewSource(dev *Device) *Source {
	return &Source{
		dev:     dev,
		maxGain: 1,
		props: handover.NewPublished(&sourceProps{
			state:         Initial,
			pitch:         1,
			gain:          1,
			refDistance:   1,
			maxDistance:   3.4e38,
			rolloffFactor: 1,
			coneInner:     2 * piConst,
			coneOuter:     2 * piConst,
			coneOuterGain: 0,
			directFilter:  FilterParams{Gain: 1, GainHF: 1, GainLF: 1},
		}),
	}
}

const piConst = 3.14159265358979323846

// publish installs next as the source's live snapshot and hands the
// superseded one to the device's reclaimer rather than discarding it.
func (s *Source) publish(next *sourceProps) {
	prev := s.props.Publish(next)
	if s.dev != nil {
		s.dev.reclaimer.Retire(prev, s.dev.epoch)
	}
}

// State reports the source's current lifecycle state.
func (s *Source) State() SourceState { return s.props.Load().state }

func (s *Source) setState(state SourceState) {
	next := *s.props.Load()
	next.state = state
	s.publish(&next)
}

// SetGain sets the source gain; values outside [minGain, maxGain] are
// clamped at this mutation boundary rather than rejected, matching the
// gain-range invariant in the data model (gain itself is unbounded
// above 1 up to maxGain, allowing boosted playback).
func (s *Source) SetGain(g float32) {
	next := *s.props.Load()
	next.gain = clampF(g, s.minGain, s.maxGain)
	s.publish(&next)
}

func (s *Source) Gain() float32 { return s.props.Load().gain }

// SetGainRange sets [min, max] and re-clamps the current gain into it.
func (s *Source) SetGainRange(min, max float32) error {
	if min < 0 || max < min {
		return ErrInvalidValue
	}
	s.minGain, s.maxGain = min, max
	next := *s.props.Load()
	next.gain = clampF(next.gain, min, max)
	s.publish(&next)
	return nil
}

func (s *Source) SetPitch(p float32) error {
	if p <= 0 {
		return ErrInvalidValue
	}
	next := *s.props.Load()
	next.pitch = p
	s.publish(&next)
	return nil
}

func (s *Source) SetPosition(v pan.Vec3) {
	next := *s.props.Load()
	next.position = v
	s.publish(&next)
}

func (s *Source) SetVelocity(v pan.Vec3) {
	next := *s.props.Load()
	next.velocity = v
	s.publish(&next)
}

func (s *Source) SetDirection(v pan.Vec3) {
	next := *s.props.Load()
	next.direction = v
	s.publish(&next)
}

func (s *Source) Position() pan.Vec3 { return s.props.Load().position }
func (s *Source) Velocity() pan.Vec3 { return s.props.Load().velocity }

// SetSpread sets the source's apparent angular width in radians,
// [0, 2*pi]; wider spreads flatten the ambisonic panning coefficients.
func (s *Source) SetSpread(radians float32) error {
	if radians < 0 || radians > 2*piConst {
		return ErrInvalidValue
	}
	next := *s.props.Load()
	next.spread = radians
	s.publish(&next)
	return nil
}

// SetCone sets the directional cone's inner/outer half-angle-derived
// full angles (radians) and the gain applied outside the outer cone.
func (s *Source) SetCone(inner, outer, outerGain float32) error {
	if inner < 0 || outer < inner || outerGain < 0 || outerGain > 1 {
		return ErrInvalidValue
	}
	next := *s.props.Load()
	next.coneInner, next.coneOuter, next.coneOuterGain = inner, outer, outerGain
	s.publish(&next)
	return nil
}

// SetDistance sets reference distance, max distance, and rolloff
// factor used by the distance-attenuation model.
func (s *Source) SetDistance(ref, max, rolloff float32) error {
	if ref < 0 || max < 0 || rolloff < 0 {
		return ErrInvalidValue
	}
	next := *s.props.Load()
	next.refDistance, next.maxDistance, next.rolloffFactor = ref, max, rolloff
	s.publish(&next)
	return nil
}

// SetDistanceModel overrides the listener's distance model for this
// source only; clear the override with ClearDistanceModel.
func (s *Source) SetDistanceModel(m DistanceModel) error {
	if m < DistanceNone || m > DistanceExponentClamped {
		return ErrInvalidEnum
	}
	next := *s.props.Load()
	next.distanceModelOverride, next.useDistanceOverride = m, true
	s.publish(&next)
	return nil
}

func (s *Source) ClearDistanceModel() {
	next := *s.props.Load()
	next.useDistanceOverride = false
	s.publish(&next)
}

// SetRelative marks Position/Velocity/Direction as listener-relative
// rather than world-space.
func (s *Source) SetRelative(relative bool) {
	next := *s.props.Load()
	next.relative = relative
	s.publish(&next)
}

// SetLooping sets whether a source re-queues its buffer queue from the
// start (or the active buffer's loop region) once it's exhausted.
func (s *Source) SetLooping(loop bool) {
	next := *s.props.Load()
	next.looping = loop
	s.publish(&next)
}

// SetDirectChannels bypasses spatialization: every source channel is
// mixed into ambisonic channel 0 (W) only; channels are not routed to
// identically-named output channels.
func (s *Source) SetDirectChannels(direct bool) {
	next := *s.props.Load()
	next.directChannels = direct
	s.publish(&next)
}

// SetDirectFilter sets the direct-path (dry) low-pass/high-pass/gain
// filter applied before spatialization.
func (s *Source) SetDirectFilter(fp FilterParams) {
	next := *s.props.Load()
	next.directFilter = fp
	s.publish(&next)
}

// SetSend wires auxiliary send n to target (nil disables the send) with
// the given filter.
func (s *Source) SetSend(n int, target *EffectSlot, fp FilterParams) error {
	if n < 0 || n >= voice.MaxSends {
		return ErrInvalidValue
	}
	next := *s.props.Load()
	next.sends[n] = sourceSend{Slot: target, Filter: fp}
	s.publish(&next)
	return nil
}

// QueueBuffers appends buffers to the source's playback queue,
// retaining each one; queuing onto a Playing/Paused source is allowed
// (the mixer drains the queue as it advances), but the source must not
// already be in a looping-with-multiple-buffers configuration that
// this would make ambiguous -- callers are expected to stop looping
// playback before building a long-form queue.
func (s *Source) QueueBuffers(bufs ...*Buffer) error {
	state := s.props.Load()
	if state.state == Playing || state.state == Paused {
		if state.looping && len(s.queue) > 0 {
			return ErrInvalidOperation
		}
	}
	for _, b := range bufs {
		if b == nil {
			return ErrInvalidName
		}
		b.retain()
		s.queue = append(s.queue, queuedBuffer{buf: b})
	}
	s.refreshQueueSnapshot()
	return nil
}

// UnqueueBuffers removes up to n buffers from the front of the queue
// that have already been fully processed by the mixer, releasing each
// one and returning them in playback order. It returns fewer than n
// (possibly zero) if fewer are eligible.
func (s *Source) UnqueueBuffers(n int) []*Buffer {
	var out []*Buffer
	for len(out) < n && len(s.queue) > 0 && s.queue[0].Processed {
		out = append(out, s.queue[0].buf)
		s.queue[0].buf.release()
		s.queue = s.queue[1:]
		if s.queueIdx > 0 {
			s.queueIdx--
		}
	}
	if len(out) > 0 {
		s.refreshQueueSnapshot()
	}
	return out
}

// channelCount reports the channel width of the source's queued audio,
// from its first buffer (every queued buffer on a source must share
// the same channel layout, enforced by Context at queue time).
func (s *Source) channelCount() int {
	if len(s.queue) == 0 {
		return 1
	}
	return len(s.queue[0].buf.Channels)
}

// isMono reports whether this source is eligible for spatialization: a
// mono source not marked DirectChannels is panned, anything else
// (multichannel, or explicitly direct) routes without 3D processing,
// matching the engine's auto-spatialize-detection rule.
func (s *Source) isMono() bool {
	return s.channelCount() == 1 && !s.props.Load().directChannels
}

func clampF(v, lo, hi float32) float32 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
