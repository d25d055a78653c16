package effect

import (
	"math"
	"testing"
)

func TestEchoImpulseDecaysByFeedback(t *testing.T) {
	e := &EchoEffect{}
	e.DeviceUpdate(44100)
	e.Update(EchoProps{Delay: 0.1, Feedback: 0.5, Damping: 0})

	tapSamples := int(0.1 * 44100)
	total := tapSamples*3 + 10
	in := make([]float32, total)
	in[0] = 1
	out := make([]float32, total)
	e.Process(total, in, out)

	for k := 0; k < 4; k++ {
		idx := k * tapSamples
		want := float32(math.Pow(0.5, float64(k)))
		if math.Abs(float64(out[idx]-want)) > 0.02 {
			t.Errorf("tap %d at sample %d = %v, want ~%v", k, idx, out[idx], want)
		}
	}
}

func TestEqualizerUnityGainsAreTransparent(t *testing.T) {
	e := &EqualizerEffect{}
	e.DeviceUpdate(44100)
	e.Update(EqualizerProps{
		LowGain: 1, LowCutoff: 200,
		Mid1Gain: 1, Mid1Center: 1000, Mid1Width: 1,
		Mid2Gain: 1, Mid2Center: 4000, Mid2Width: 1,
		HighGain: 1, HighCutoff: 8000,
	})

	n := 512
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 44100))
	}
	out := make([]float32, n)
	e.Process(n, in, out)

	for i := 100; i < n; i++ {
		if math.Abs(float64(out[i]-in[i])) > 0.05 {
			t.Fatalf("unity-gain EQ not transparent at sample %d: in=%v out=%v", i, in[i], out[i])
		}
	}
}

func TestCompressorReducesGainAboveThreshold(t *testing.T) {
	c := &CompressorEffect{}
	c.DeviceUpdate(44100)
	c.Update(CompressorProps{Enabled: true, ThresholdDB: -20, Ratio: 4, AttackMS: 1, ReleaseMS: 50})

	n := 4410 // 100ms, long enough for the envelope to settle
	in := make([]float32, n)
	for i := range in {
		in[i] = 0.9
	}
	out := make([]float32, n)
	c.Process(n, in, out)

	if out[n-1] >= in[n-1] {
		t.Errorf("compressor did not reduce a loud sustained signal: in=%v out=%v", in[n-1], out[n-1])
	}
}

func TestDistortionStaysBounded(t *testing.T) {
	d := &DistortionEffect{}
	d.DeviceUpdate(44100)
	d.Update(DistortionProps{Edge: 1, Gain: 1, LowpassHz: 8000, EqCenterHz: 1000, EqBandwidth: 2})

	n := 1024
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 200 * float64(i) / 44100))
	}
	out := make([]float32, n)
	d.Process(n, in, out)

	for _, s := range out {
		if math.IsNaN(float64(s)) || math.Abs(float64(s)) > 10 {
			t.Fatalf("distortion output diverged: %v", s)
		}
	}
}

func TestReverbProducesNoNaN(t *testing.T) {
	r := &ReverbEffect{}
	r.DeviceUpdate(44100)
	r.Update(ReverbProps{
		Density: 1, Diffusion: 1, Gain: 0.3, DecayTime: 1.5, DecayHFRatio: 0.5,
		ReflectionsGain: 0.5, LateGain: 1,
	})

	n := 4096
	in := make([]float32, n)
	in[0] = 1
	out := make([]float32, n)
	r.Process(n, in, out)

	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("reverb produced NaN")
		}
	}
}

func TestChorusProducesNoNaN(t *testing.T) {
	c := &ChorusEffect{}
	c.DeviceUpdate(44100)
	c.Update(ChorusProps{Waveform: ChorusSine, Rate: 1.5, Depth: 0.5, Feedback: 0.3, Delay: 0.01})

	n := 2048
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}
	out := make([]float32, n)
	c.Process(n, in, out)
	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("chorus produced NaN")
		}
	}
}

func TestAutowahProducesNoNaN(t *testing.T) {
	a := &AutowahEffect{}
	a.DeviceUpdate(44100)
	a.Update(AutowahProps{AttackMS: 10, ReleaseMS: 100, Resonance: 2, PeakGain: 5})

	n := 2048
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 300 * float64(i) / 44100))
	}
	out := make([]float32, n)
	a.Process(n, in, out)
	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("autowah produced NaN")
		}
	}
}

func TestFrequencyShifterProducesNoNaN(t *testing.T) {
	f := &FrequencyShifterEffect{}
	f.DeviceUpdate(44100)
	f.Update(FrequencyShifterProps{Frequency: 50, Direction: ShiftUp})

	n := 2048
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}
	out := make([]float32, n)
	f.Process(n, in, out)
	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("frequency shifter produced NaN")
		}
	}
}

func TestPitchShifterUnityRatioNoNaN(t *testing.T) {
	p := &PitchShifterEffect{}
	p.DeviceUpdate(44100)
	p.Update(PitchShifterProps{Semitones: 0})

	n := stftSize * 4
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 44100))
	}
	out := make([]float32, n)
	p.Process(n, in, out)

	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("pitch shifter produced NaN")
		}
	}
}

func TestTopologicalOrderRejectsCycle(t *testing.T) {
	// slot 0 -> 1 -> 0
	targets := []int{1, 0}
	targetIsSlot := []bool{true, true}
	if _, ok := TopologicalOrder(targets, targetIsSlot); ok {
		t.Fatalf("expected cycle to be rejected")
	}
}

func TestTopologicalOrderLinearChain(t *testing.T) {
	// 0 -> 1 -> main, 2 -> main
	targets := []int{1, 0, 0}
	targetIsSlot := []bool{true, false, false}
	order, ok := TopologicalOrder(targets, targetIsSlot)
	if !ok {
		t.Fatalf("expected a valid order")
	}
	pos := map[int]int{}
	for i, s := range order {
		pos[s] = i
	}
	if pos[0] >= pos[1] {
		t.Errorf("slot 0 must process before slot 1 (0 feeds 1): order=%v", order)
	}
}

func TestSlotRecreatesEffectOnKindChange(t *testing.T) {
	s := NewSlot(64)
	s.SetKind(Echo, 44100)
	first := s.Effect
	s.SetKind(Echo, 44100)
	if s.Effect != first {
		t.Errorf("SetKind recreated the effect even though the kind did not change")
	}
	s.SetKind(Chorus, 44100)
	if s.Effect == first {
		t.Errorf("SetKind did not recreate the effect on a kind change")
	}
}
