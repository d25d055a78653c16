package al

import (
	"github.com/kcat/openal-soft-sub004/internal/pan"
	"github.com/kcat/openal-soft-sub004/internal/voice"
)

// Play starts or resumes playback on d: Initial/Stopped sources
// allocate a fresh voice at the front of their queue, Paused sources
// simply flip back to Playing on their existing voice, and an already
// Playing source restarts from the top of its queue (Rewind+Play,
// matching the data model's restart-on-replay rule).
func (s *Source) Play(d *Device) error {
	if len(s.queue) == 0 {
		return ErrInvalidOperation
	}
	switch s.State() {
	case Paused:
		s.setState(Playing)
		d.publishSourceProps(s)
		return nil
	case Playing:
		s.rewindLocked()
	}
	s.setState(Playing)
	s.refreshQueueSnapshot()
	if s.boundVoice.Load() == nil {
		s.boundVoice.Store(d.allocVoice(s, s.buildProps(d), s.channelCount()))
	} else {
		d.publishSourceProps(s)
	}
	return nil
}

func (s *Source) Pause() error {
	if s.State() != Playing {
		return ErrInvalidOperation
	}
	s.setState(Paused)
	return nil
}

// Stop halts playback immediately; the bound voice runs one more
// render slice to flush its resampler/filter tail (internal/voice's
// termination rule), then the device reclaims it.
func (s *Source) Stop() error {
	if s.State() == Initial {
		return nil
	}
	s.setState(Stopped)
	return nil
}

// Rewind returns the source to Initial, resetting its queue cursor to
// the first buffer without releasing it.
func (s *Source) Rewind() error {
	s.rewindLocked()
	s.setState(Initial)
	return nil
}

func (s *Source) rewindLocked() {
	for i := range s.queue {
		s.queue[i].Processed = false
	}
	s.queueIdx = 0
}

// refreshQueueSnapshot rebuilds the cached voice.Buffer queue handed
// to the mixer; called whenever the buffer queue itself changes, not
// every slice (position/gain/etc. update through publishSourceProps
// instead, which is cheap since Queue is just a slice header copy).
func (s *Source) refreshQueueSnapshot() {
	snap := make([]voice.Buffer, len(s.queue))
	for i, qb := range s.queue {
		snap[i] = voice.Buffer{
			Channels:  qb.buf.Channels,
			Frames:    qb.buf.Frames(),
			LoopStart: qb.buf.LoopStart,
			LoopEnd:   qb.buf.LoopEnd,
		}
	}
	next := *s.props.Load()
	next.cachedQueue = snap
	next.sourceRate = sourceRate(s)
	s.publish(&next)
}

// buildProps translates the source's currently published snapshot plus
// the listener's currently published snapshot into the mixer-ready
// voice.Props. Both s.props.Load() and l.props.Load() (via Listener's
// accessors) are plain atomic loads of already-immutable data, so
// whichever thread calls this -- including Device.Render's mixer
// thread -- never reads memory an API-thread setter could be
// concurrently mutating.
func (s *Source) buildProps(d *Device) *voice.Props {
	l := d.Listener
	sp := s.props.Load()

	pos, vel, dir := sp.position, sp.velocity, sp.direction
	if !sp.relative {
		pos = l.toListenerSpace(pos.Sub(l.Position()))
		vel = l.toListenerSpace(vel)
		dir = l.toListenerSpace(dir)
	}
	toListener := pan.Vec3{}.Sub(pos).Normalized()
	distance := pos.Length()

	model := l.DistanceModel()
	if sp.useDistanceOverride {
		model = sp.distanceModelOverride
	}

	p := &voice.Props{
		State:        toVoiceState(sp.state),
		Queue:        sp.cachedQueue,
		Looping:      sp.looping,
		Pitch:        sp.pitch,
		DopplerPitch: pan.Doppler(1, l.SpeedOfSound(), l.DopplerFactor(), l.toListenerSpace(l.Velocity()), vel, toListener, 0.5, 2.0),
		Gain:         sp.gain * l.Gain(),

		DirectChannels: sp.directChannels,

		ToListener:   toListener,
		SourceFacing: dir,
		Spread:       sp.spread,

		Distance:      distance,
		RefDistance:   sp.refDistance,
		MaxDistance:   sp.maxDistance,
		RolloffFactor: sp.rolloffFactor,
		DistanceModel: toPanDistanceModel(model),

		ConeInner:     sp.coneInner,
		ConeOuter:     sp.coneOuter,
		ConeOuterGain: sp.coneOuterGain,

		DirectFilter: toVoiceFilter(sp.directFilter),

		OutputChannels: ambiChannels,
		SourceRate:     float32(sp.sourceRate),
	}
	if !sp.directChannels {
		p.DecodeMatrix = func(dir pan.Vec3, spread float32) []float32 {
			coeffs := pan.SHCoeffs(dir)
			pan.ApplySpread(&coeffs, spread)
			out := make([]float32, len(coeffs))
			copy(out, coeffs[:])
			return out
		}
	}
	for n := range sp.sends {
		if sp.sends[n].Slot == nil {
			continue
		}
		p.Sends[n] = voice.SendTarget{Active: true, Filter: toVoiceFilter(sp.sends[n].Filter)}
	}
	return p
}

func sourceRate(s *Source) int {
	if len(s.queue) == 0 {
		return 44100
	}
	return s.queue[0].buf.Rate
}

func toVoiceState(s SourceState) voice.State {
	switch s {
	case Playing:
		return voice.Playing
	case Paused:
		return voice.Paused
	case Stopped:
		return voice.Stopped
	default:
		return voice.Initial
	}
}

func toPanDistanceModel(m DistanceModel) pan.DistanceModel { return pan.DistanceModel(m) }

// publishSourceProps rebuilds and republishes this source's mixer
// snapshot; called once per render slice for every bound source.
func (d *Device) publishSourceProps(s *Source) {
	v := s.boundVoice.Load()
	if v == nil {
		return
	}
	next := s.buildProps(d)
	prev := v.Publish(next, s.generation.Current())
	d.reclaimer.Retire(prev, d.epoch)
}
