package al

import (
	"github.com/kcat/openal-soft-sub004/internal/format"
)

// Buffer is immutable PCM storage, refcounted by every source that has
// it queued; deleting a buffer while attached to a source fails.
type Buffer struct {
	Format   SampleType
	Layout   ChannelLayout
	Rate     int
	Channels [][]float32 // planar, one slice per channel, already decoded to f32 in [-1,1]

	LoopStart, LoopEnd int // sample-frame indices; LoopEnd == 0 means no loop region

	refCount int
}

// NewBuffer wraps already-decoded planar f32 PCM. Decoding from
// u8/s16/s32/µ-law/ADPCM source data is the caller's responsibility;
// this engine's core only consumes the decoded float form (per
// SPEC_FULL's non-goals: buffer PCM decoding is an opaque provider).
func NewBuffer(sampleType SampleType, layout ChannelLayout, rate int, channels [][]float32) *Buffer {
	return &Buffer{Format: sampleType, Layout: layout, Rate: rate, Channels: channels}
}

func toFormatSampleType(t SampleType) format.SampleType {
	switch t {
	case SampleU8:
		return format.U8
	case SampleS8:
		return format.S8
	case SampleS16:
		return format.S16
	case SampleS32:
		return format.S32
	default:
		return format.F32
	}
}

func toFormatLayout(l ChannelLayout) format.ChannelLayout {
	switch l {
	case LayoutMono:
		return format.Mono
	case LayoutStereo:
		return format.Stereo
	case LayoutQuad:
		return format.Quad
	case LayoutSurround51:
		return format.Surround51
	case LayoutSurround51Rear:
		return format.Surround51Rear
	case LayoutSurround51Side:
		return format.Surround51Side
	case LayoutSurround61:
		return format.Surround61
	case LayoutSurround71:
		return format.Surround71
	case LayoutAmbisonicFirstOrder:
		return format.AmbisonicFirstOrder
	default:
		return format.BinauralHRTF
	}
}

// Frames reports the buffer's length in sample-frames.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// SetLoopPoints sets the loop region in sample-frames; LoopEnd == 0
// disables looping within this buffer.
func (b *Buffer) SetLoopPoints(start, end int) error {
	if start < 0 || end < 0 || end > b.Frames() || (end != 0 && start >= end) {
		return ErrInvalidValue
	}
	b.LoopStart, b.LoopEnd = start, end
	return nil
}

// IsInUse reports whether any source currently has this buffer queued.
func (b *Buffer) IsInUse() bool { return b.refCount > 0 }

func (b *Buffer) retain() { b.refCount++ }
func (b *Buffer) release() {
	if b.refCount > 0 {
		b.refCount--
	}
}
