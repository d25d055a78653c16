package al

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kcat/openal-soft-sub004/internal/hrtfdata"
)

// buildMinPHR00 constructs a minimal, structurally valid MinPHR00
// dataset (a silent impulse at sample 0, every channel) for exercising
// Device.LoadHRTF without shipping a real dataset fixture.
func buildMinPHR00(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(hrtfdata.Magic)
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint16(hrtfdata.CanonicalHRIRCount))
	binary.Write(&buf, binary.LittleEndian, uint16(hrtfdata.CanonicalHRIRSize))
	buf.WriteByte(hrtfdata.CanonicalElevationCount)
	for _, off := range hrtfdata.CanonicalElevationOffsets {
		binary.Write(&buf, binary.LittleEndian, off)
	}
	for i := 0; i < hrtfdata.CanonicalHRIRCount; i++ {
		for s := 0; s < hrtfdata.CanonicalHRIRSize; s++ {
			var v int16
			if s == 0 {
				v = 1000
			}
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	for i := 0; i < hrtfdata.CanonicalHRIRCount; i++ {
		buf.WriteByte(byte(i % 20))
	}
	return buf.Bytes()
}

func TestLoadHRTFRejectsNonBinauralLayout(t *testing.T) {
	d := newTestDevice(t) // LayoutStereo
	if err := d.LoadHRTF(bytes.NewReader(buildMinPHR00(t))); err != ErrInvalidOperation {
		t.Errorf("LoadHRTF on a stereo device = %v, want ErrInvalidOperation", err)
	}
}

func TestLoadHRTFSwitchesRenderToBinauralConvolution(t *testing.T) {
	d := NewDevice(44100, LayoutBinauralHRTF, SampleS16, 256)
	if err := d.LoadHRTF(bytes.NewReader(buildMinPHR00(t))); err != nil {
		t.Fatalf("LoadHRTF: %v", err)
	}
	if d.hrtfVoice == nil {
		t.Fatal("hrtfVoice not set after LoadHRTF")
	}

	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(4096, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}
	if err := s.Play(d); err != nil {
		t.Fatalf("Play: %v", err)
	}

	d.Render(256)

	var energy float32
	for _, ch := range d.outBus {
		for _, v := range ch {
			energy += v * v
		}
	}
	if energy == 0 {
		t.Error("binaural render has zero energy, want a convolved sine tone")
	}
}
