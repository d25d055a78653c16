// Package al is the public data model and engine entry point: Device,
// Context, Listener, Source, Buffer, EffectSlot, and the per-call
// mixer Render loop that ties the internal DSP packages together.
package al

import "errors"

// Validation errors: the offending call leaves engine state unchanged.
var (
	ErrInvalidEnum      = errors.New("al: invalid enum value")
	ErrInvalidValue     = errors.New("al: invalid parameter value")
	ErrInvalidName      = errors.New("al: invalid object name")
	ErrInvalidOperation = errors.New("al: invalid operation for current state")
)

// ErrOutOfMemory is the out-of-memory error value. No function in this
// package returns it.
var ErrOutOfMemory = errors.New("al: out of memory")

// ErrDeviceDisconnected is the device-disconnected error value. No
// function in this package returns it, and nothing marks a Device as
// disconnected.
var ErrDeviceDisconnected = errors.New("al: device disconnected")

// DistanceModel selects the distance-attenuation curve applied to a
// source's gain as a function of source-listener distance.
type DistanceModel int

const (
	DistanceNone DistanceModel = iota
	DistanceInverse
	DistanceInverseClamped
	DistanceLinear
	DistanceLinearClamped
	DistanceExponent
	DistanceExponentClamped
)

func (d DistanceModel) String() string {
	switch d {
	case DistanceNone:
		return "None"
	case DistanceInverse:
		return "Inverse"
	case DistanceInverseClamped:
		return "InverseClamped"
	case DistanceLinear:
		return "Linear"
	case DistanceLinearClamped:
		return "LinearClamped"
	case DistanceExponent:
		return "Exponent"
	case DistanceExponentClamped:
		return "ExponentClamped"
	default:
		return "Unknown"
	}
}

// SourceState mirrors the source lifecycle states from the data model.
type SourceState int

const (
	Initial SourceState = iota
	Playing
	Paused
	Stopped
)

func (s SourceState) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// EffectType enumerates the effect kinds an EffectSlot can host.
type EffectType int

const (
	EffectNull EffectType = iota
	EffectReverb
	EffectEcho
	EffectChorus
	EffectEqualizer
	EffectCompressor
	EffectAutowah
	EffectPitchShifter
	EffectDistortion
	EffectFrequencyShifter
)

func (e EffectType) String() string {
	switch e {
	case EffectNull:
		return "Null"
	case EffectReverb:
		return "Reverb"
	case EffectEcho:
		return "Echo"
	case EffectChorus:
		return "Chorus"
	case EffectEqualizer:
		return "Equalizer"
	case EffectCompressor:
		return "Compressor"
	case EffectAutowah:
		return "Autowah"
	case EffectPitchShifter:
		return "PitchShifter"
	case EffectDistortion:
		return "Distortion"
	case EffectFrequencyShifter:
		return "FrequencyShifter"
	default:
		return "Unknown"
	}
}

// SampleType enumerates buffer/device PCM sample representations.
type SampleType int

const (
	SampleU8 SampleType = iota
	SampleS8
	SampleS16
	SampleS32
	SampleF32
)

// ChannelLayout enumerates supported buffer/device speaker layouts.
type ChannelLayout int

const (
	LayoutMono ChannelLayout = iota
	LayoutStereo
	LayoutQuad
	LayoutSurround51
	LayoutSurround51Rear
	LayoutSurround51Side
	LayoutSurround61
	LayoutSurround71
	LayoutAmbisonicFirstOrder
	LayoutBinauralHRTF
)
