package al

import (
	"math"
	"testing"

	"github.com/kcat/openal-soft-sub004/internal/pan"
)

func sineChannel(frames int, freq, rate float32) []float32 {
	ch := make([]float32, frames)
	for i := range ch {
		ch[i] = float32(math.Sin(2 * math.Pi * float64(freq) * float64(i) / float64(rate)))
	}
	return ch
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	return NewDevice(44100, LayoutStereo, SampleS16, 256)
}

func TestNewSourceDefaults(t *testing.T) {
	d := newTestDevice(t)
	s := d.NewSource()

	if s.State() != Initial {
		t.Errorf("State = %v, want Initial", s.State())
	}
	if s.Gain() != 1 {
		t.Errorf("Gain = %v, want 1", s.Gain())
	}
}

func TestSourcePlayWithEmptyQueueFails(t *testing.T) {
	d := newTestDevice(t)
	s := d.NewSource()

	if err := s.Play(d); err != ErrInvalidOperation {
		t.Errorf("Play on empty queue = %v, want ErrInvalidOperation", err)
	}
}

func TestSourcePlayPauseStopLifecycle(t *testing.T) {
	d := newTestDevice(t)
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(4096, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}

	if err := s.Play(d); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if s.State() != Playing {
		t.Errorf("State after Play = %v, want Playing", s.State())
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if s.State() != Paused {
		t.Errorf("State after Pause = %v, want Paused", s.State())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.State() != Stopped {
		t.Errorf("State after Stop = %v, want Stopped", s.State())
	}
}

func TestRenderAdvancesVoiceAndReclaimsOnIdle(t *testing.T) {
	d := newTestDevice(t)
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(128, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}
	if err := s.Play(d); err != nil {
		t.Fatalf("Play: %v", err)
	}

	for i := 0; i < 10 && s.State() == Playing; i++ {
		d.Render(64)
	}

	if s.State() != Stopped {
		t.Errorf("State after drain = %v, want Stopped", s.State())
	}
	if len(d.freeVoices) != 1 {
		t.Errorf("freeVoices = %d, want the drained voice reclaimed", len(d.freeVoices))
	}
}

func TestRenderProducesNonSilentOutput(t *testing.T) {
	d := newTestDevice(t)
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(4096, 440, 44100)})
	s := d.NewSource()
	s.SetPosition(pan.Vec3{X: 0, Y: 0, Z: -1})
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
		t.Error("rendered output has zero energy, want a mixed sine tone")
	}
}

func TestEffectSlotRoutingRejectsCycle(t *testing.T) {
	d := newTestDevice(t)
	a := d.NewAuxEffectSlot()
	b := d.NewAuxEffectSlot()

	if err := d.SetSlotTarget(a, b); err != nil {
		t.Fatalf("SetSlotTarget(a, b): %v", err)
	}
	if err := d.SetSlotTarget(b, a); err == nil {
		t.Error("SetSlotTarget(b, a) closing a cycle succeeded, want ErrInvalidOperation")
	}
}

func TestDeleteAuxEffectSlotPreservesOtherTargets(t *testing.T) {
	d := newTestDevice(t)
	a := d.NewAuxEffectSlot()
	b := d.NewAuxEffectSlot()
	c := d.NewAuxEffectSlot()

	if err := d.SetSlotTarget(b, c); err != nil {
		t.Fatalf("SetSlotTarget(b, c): %v", err)
	}
	if err := d.DeleteAuxEffectSlot(a); err != nil {
		t.Fatalf("DeleteAuxEffectSlot(a): %v", err)
	}
	d.Render(64) // flush published routing into the mixer-side slot snapshot

	// b's target index must still resolve to c, not shift because a
	// was removed from the slot list.
	bIdx := d.slotIndex(b)
	cIdx := d.slotIndex(c)
	if d.mixerSlots[bIdx].Target != cIdx {
		t.Errorf("b.Target = %d, want %d (c's index unaffected by deleting a)", d.mixerSlots[bIdx].Target, cIdx)
	}
}

func TestListenerOrientationDegenerateFallsBackToIdentity(t *testing.T) {
	l := NewListener()
	l.SetOrientation(pan.Vec3{}, pan.Vec3{X: 0, Y: 1, Z: 0})

	if l.Forward() != (pan.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("Forward after degenerate SetOrientation = %v, want identity -Z", l.Forward())
	}
}

func TestSourceGainClampedToRange(t *testing.T) {
	d := newTestDevice(t)
	s := d.NewSource()
	if err := s.SetGainRange(0, 0.5); err != nil {
		t.Fatalf("SetGainRange: %v", err)
	}
	s.SetGain(10)
	if s.Gain() != 0.5 {
		t.Errorf("Gain = %v, want clamped to 0.5", s.Gain())
	}
}

func TestMonitorMixMatchesOutBusForStereoDevice(t *testing.T) {
	d := newTestDevice(t)
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(256, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}
	if err := s.Play(d); err != nil {
		t.Fatalf("Play: %v", err)
	}
	d.Render(256)

	mix := d.MonitorMix(256)
	if len(mix) != 2 {
		t.Fatalf("MonitorMix returned %d channels, want 2", len(mix))
	}
	for i := 0; i < 256; i++ {
		if mix[0][i] != d.outBus[0][i] || mix[1][i] != d.outBus[1][i] {
			t.Fatalf("MonitorMix diverges from outBus for an already-stereo device at frame %d", i)
			break
		}
	}
}

func TestQuantizeIntoDithersNarrowFormats(t *testing.T) {
	d := newTestDevice(t) // SampleS16
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(256, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}
	if err := s.Play(d); err != nil {
		t.Fatalf("Play: %v", err)
	}
	d.Render(256)

	dst := make([]byte, 256*2*2)
	d.quantizeInto(dst, 256)

	allZero := true
	for _, b := range dst {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("quantizeInto produced all-zero output for a non-silent render")
	}
}

func TestUnqueueBuffersOnlyReturnsProcessedEntries(t *testing.T) {
	d := newTestDevice(t)
	buf := d.NewBuffer(SampleF32, LayoutMono, 44100, [][]float32{sineChannel(64, 440, 44100)})
	s := d.NewSource()
	if err := s.QueueBuffers(buf); err != nil {
		t.Fatalf("QueueBuffers: %v", err)
	}

	if out := s.UnqueueBuffers(1); len(out) != 0 {
		t.Errorf("UnqueueBuffers before processing = %d entries, want 0", len(out))
	}
}
