package voice

import (
	"math"
	"testing"

	"github.com/kcat/openal-soft-sub004/internal/pan"
	"github.com/kcat/openal-soft-sub004/internal/resample"
)

func sineBuffer(frames int, freq, rate float32) Buffer {
	ch := make([]float32, frames)
	for i := range ch {
		ch[i] = float32(math.Sin(2 * math.Pi * float64(freq) * float64(i) / float64(rate)))
	}
	return Buffer{Channels: [][]float32{ch}, Frames: frames}
}

func basicProps(buf Buffer) *Props {
	return &Props{
		State:          Playing,
		Queue:          []Buffer{buf},
		Pitch:          1,
		DopplerPitch:   1,
		Gain:           1,
		DirectChannels: true,
		DistanceModel:  pan.DistanceNone,
		ConeInner:      2 * math.Pi,
		ConeOuter:      2 * math.Pi,
		ConeOuterGain:  1,
		OutputChannels: 2,
		SourceRate:     44100,
		DirectFilter:   FilterParams{Gain: 1, GainHF: 1, GainLF: 1},
	}
}

func TestVoiceUnityPitchConsumesExpectedFrames(t *testing.T) {
	buf := sineBuffer(4096, 440, 44100)
	v := NewVoice(basicProps(buf), 1)

	dry := [][]float32{make([]float32, 256), make([]float32, 256)}
	var sends [MaxSends][][]float32
	v.Process(256, dry, sends, 44100)

	if v.cursorFrame != 256 {
		t.Errorf("cursorFrame = %d, want 256 after one unity-rate slice", v.cursorFrame)
	}
}

func TestVoiceDoublePitchConsumesDoubleFrames(t *testing.T) {
	buf := sineBuffer(4096, 440, 44100)
	p := basicProps(buf)
	p.Pitch = 2
	v := NewVoice(p, 1)

	dry := [][]float32{make([]float32, 256), make([]float32, 256)}
	var sends [MaxSends][][]float32
	v.Process(256, dry, sends, 44100)

	if v.cursorFrame != 512 {
		t.Errorf("cursorFrame = %d, want 512 at pitch=2", v.cursorFrame)
	}
}

func TestVoiceProducesNoNaNAtNonUnityRate(t *testing.T) {
	buf := sineBuffer(4096, 440, 44100)
	p := basicProps(buf)
	p.Pitch = 1.37
	v := NewVoice(p, 1)

	dry := [][]float32{make([]float32, 512), make([]float32, 512)}
	var sends [MaxSends][][]float32
	v.Process(512, dry, sends, 44100)

	for _, ch := range dry {
		for _, s := range ch {
			if math.IsNaN(float64(s)) {
				t.Fatalf("NaN in voice output at fractional pitch")
			}
		}
	}
}

func TestVoiceGainRampNeverOvershoots(t *testing.T) {
	buf := sineBuffer(4096, 440, 44100)
	p := basicProps(buf)
	p.DirectChannels = false
	p.DecodeMatrix = func(dir pan.Vec3, spread float32) []float32 {
		return []float32{1, 0}
	}
	v := NewVoice(p, 1)

	dry := [][]float32{make([]float32, 64), make([]float32, 64)}
	var sends [MaxSends][][]float32
	before := v.currentGain[0]
	v.Process(64, dry, sends, 44100)
	after := v.currentGain[0]
	target := v.targetGain[0]

	if absf(target-after) > absf(target-before) {
		t.Errorf("gain ramp overshot: before=%v after=%v target=%v", before, after, target)
	}
}

func TestVoiceStopFlushesOneSliceThenIdles(t *testing.T) {
	buf := sineBuffer(4096, 440, 44100)
	p := basicProps(buf)
	v := NewVoice(p, 1)

	dry := [][]float32{make([]float32, 64), make([]float32, 64)}
	var sends [MaxSends][][]float32
	v.Process(64, dry, sends, 44100)
	if v.Idle() {
		t.Fatalf("voice went idle while still playing")
	}

	stopped := *p
	stopped.State = Stopped
	v.Publish(&stopped, 1)

	v.Process(64, dry, sends, 44100)
	if v.Idle() {
		t.Fatalf("voice went idle on the same slice it was told to stop (should flush one more slice)")
	}

	v.Process(64, dry, sends, 44100)
	if !v.Idle() {
		t.Errorf("voice did not go idle after its flush slice")
	}
}

func TestVoiceLoopsAtBufferEnd(t *testing.T) {
	buf := sineBuffer(100, 440, 44100)
	buf.LoopEnd = 100
	p := basicProps(buf)
	p.Looping = true
	v := NewVoice(p, 1)

	dry := [][]float32{make([]float32, 64), make([]float32, 64)}
	var sends [MaxSends][][]float32
	v.Process(64, dry, sends, 44100)
	v.Process(64, dry, sends, 44100)

	if v.Idle() {
		t.Errorf("looping voice went idle instead of wrapping")
	}
	if v.cursorFrame >= buf.Frames {
		t.Errorf("looping voice cursor %d did not wrap below buffer length %d", v.cursorFrame, buf.Frames)
	}
}

func TestPitchIncrementZeroBelowOneSample(t *testing.T) {
	if inc := pitchIncrement(0, 44100, 44100); inc != 0 {
		t.Errorf("zero pitch should yield zero increment, got %d", inc)
	}
}

func TestPitchIncrementUnityIsFractionOne(t *testing.T) {
	if inc := pitchIncrement(1, 44100, 44100); inc != resample.FractionOne {
		t.Errorf("unity pitch/rate increment = %d, want %d", inc, resample.FractionOne)
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
