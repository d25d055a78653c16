package al

import (
	"github.com/kcat/openal-soft-sub004/internal/handover"
	"github.com/kcat/openal-soft-sub004/internal/pan"
)

// listenerState is the whole-value snapshot of every Listener property
// that feeds a source's per-slice distance/doppler/orientation
// computation. Every setter below builds a new copy and publishes it
// with one atomic swap -- the same discipline EffectSlot and Source
// use -- so Device.Render's buildProps only ever Loads an
// already-published, immutable snapshot.
type listenerState struct {
	position pan.Vec3
	velocity pan.Vec3

	forward, up pan.Vec3 // orthonormalized on every SetOrientation

	gain float32

	metersPerUnit float32
	dopplerFactor float32
	speedOfSound  float32

	distanceModel DistanceModel
}

// Listener is the single per-context listening point: position,
// velocity, orientation, and the global playback parameters that feed
// every voice's distance/doppler computation.
type Listener struct {
	dev   *Device // back-reference for epoch-tagged reclamation; nil for a standalone Listener
	props *handover.Published[listenerState]
}

// NewListener returns a Listener at the origin with engine defaults:
// unity gain, 1 meter per unit, doppler factor 1, speed of sound
// 343.3 m/s (air at 20C), facing -Z with +Y up, inverse-clamped
// distance attenuation.
func NewListener() *Listener {
	l := &Listener{props: handover.NewPublished(&listenerState{
		gain:          1,
		metersPerUnit: 1,
		dopplerFactor: 1,
		speedOfSound:  343.3,
		distanceModel: DistanceInverseClamped,
	})}
	l.SetOrientation(pan.Vec3{X: 0, Y: 0, Z: -1}, pan.Vec3{X: 0, Y: 1, Z: 0})
	return l
}

// publish installs next as the listener's live snapshot and hands the
// superseded one to the device's reclaimer rather than discarding it.
func (l *Listener) publish(next *listenerState) {
	prev := l.props.Publish(next)
	if l.dev != nil {
		l.dev.reclaimer.Retire(prev, l.dev.epoch)
	}
}

func (l *Listener) SetPosition(v pan.Vec3) {
	next := *l.props.Load()
	next.position = v
	l.publish(&next)
}

func (l *Listener) SetVelocity(v pan.Vec3) {
	next := *l.props.Load()
	next.velocity = v
	l.publish(&next)
}

func (l *Listener) Position() pan.Vec3 { return l.props.Load().position }
func (l *Listener) Velocity() pan.Vec3 { return l.props.Load().velocity }

// SetGain sets the master gain, which must be in [0, +Inf) (negative
// gain is not a meaningful attenuation and is rejected with
// ErrInvalidValue rather than clamped to zero, so callers notice the
// mistake).
func (l *Listener) SetGain(g float32) error {
	if g < 0 {
		return ErrInvalidValue
	}
	next := *l.props.Load()
	next.gain = g
	l.publish(&next)
	return nil
}

func (l *Listener) Gain() float32 { return l.props.Load().gain }

// SetOrientation re-orthonormalizes forward/up via Gram-Schmidt; a
// degenerate input (near-zero forward, or forward parallel to up)
// resets to the identity orientation rather than producing NaNs.
func (l *Listener) SetOrientation(forward, up pan.Vec3) {
	next := *l.props.Load()
	f := forward.Normalized()
	u := up.Sub(pan.Vec3{X: f.X * up.Dot(f), Y: f.Y * up.Dot(f), Z: f.Z * up.Dot(f)})
	if u.Length() < 1e-6 || forward.Length() < 1e-6 {
		next.forward = pan.Vec3{X: 0, Y: 0, Z: -1}
		next.up = pan.Vec3{X: 0, Y: 1, Z: 0}
	} else {
		next.forward = f
		next.up = u.Normalized()
	}
	l.publish(&next)
}

func (l *Listener) Forward() pan.Vec3 { return l.props.Load().forward }
func (l *Listener) Up() pan.Vec3      { return l.props.Load().up }

func (l *Listener) SetMetersPerUnit(m float32) error {
	if m <= 0 {
		return ErrInvalidValue
	}
	next := *l.props.Load()
	next.metersPerUnit = m
	l.publish(&next)
	return nil
}

func (l *Listener) MetersPerUnit() float32 { return l.props.Load().metersPerUnit }

func (l *Listener) SetDopplerFactor(f float32) error {
	if f < 0 {
		return ErrInvalidValue
	}
	next := *l.props.Load()
	next.dopplerFactor = f
	l.publish(&next)
	return nil
}

func (l *Listener) DopplerFactor() float32 { return l.props.Load().dopplerFactor }

func (l *Listener) SetSpeedOfSound(c float32) error {
	if c <= 0 {
		return ErrInvalidValue
	}
	next := *l.props.Load()
	next.speedOfSound = c
	l.publish(&next)
	return nil
}

func (l *Listener) SpeedOfSound() float32 { return l.props.Load().speedOfSound }

func (l *Listener) SetDistanceModel(m DistanceModel) error {
	if m < DistanceNone || m > DistanceExponentClamped {
		return ErrInvalidEnum
	}
	next := *l.props.Load()
	next.distanceModel = m
	l.publish(&next)
	return nil
}

func (l *Listener) DistanceModel() DistanceModel { return l.props.Load().distanceModel }

// rightFrom derives the right vector from an orthonormal forward/up
// basis (forward x up in a right-handed, Y-up convention matches the
// ambisonics X=front/Y=left/Z=up convention used by pan).
func rightFrom(f, u pan.Vec3) pan.Vec3 {
	return pan.Vec3{
		X: f.Y*u.Z - f.Z*u.Y,
		Y: f.Z*u.X - f.X*u.Z,
		Z: f.X*u.Y - f.Y*u.X,
	}
}

// toListenerSpace projects a world-space vector into the listener's
// local (ambisonics X=front,Y=left,Z=up) basis, reading forward/up from
// a single Load so the projection is internally consistent even if a
// SetOrientation publishes concurrently.
func (l *Listener) toListenerSpace(world pan.Vec3) pan.Vec3 {
	p := l.props.Load()
	right := rightFrom(p.forward, p.up)
	return pan.Vec3{
		X: world.Dot(p.forward),
		Y: -world.Dot(right),
		Z: world.Dot(p.up),
	}
}
