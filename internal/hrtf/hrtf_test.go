package hrtf

import (
	"math"
	"testing"
)

func makeTestDataset() *Dataset {
	// A tiny synthetic 2-elevation, 4-azimuth dataset with an
	// impulse-at-delay response whose energy favors the ear nearer the
	// source, so ITD/ILD-style properties are testable without a real
	// MinPHR00 file.
	mk := func(elevationDeg float32, favorRight bool) Elevation {
		e := Elevation{
			AzimuthCount: 4,
			Left:         make([]float32, 4*IRLength),
			Right:        make([]float32, 4*IRLength),
			DelayLeft:    make([]int, 4),
			DelayRight:   make([]int, 4),
			ElevationDeg: elevationDeg,
		}
		for az := 0; az < 4; az++ {
			l, r, _, _ := e.irAt(az)
			l[0] = 1
			r[0] = 1
			if favorRight && az == 1 { // azimuth 90deg: right ear leads
				e.DelayLeft[az] = 10
				e.DelayRight[az] = 4
				r[0] = 1.0
				l[0] = 0.3
			}
		}
		return e
	}
	return &Dataset{
		SampleRate: 44100,
		Elevations: []Elevation{mk(-45, true), mk(45, true)},
	}
}

func TestQueryInterpolatesAcrossElevation(t *testing.T) {
	d := makeTestDataset()
	r := d.Query(0, 90, 1.0)
	if r.Left[0] == 0 && r.Right[0] == 0 {
		t.Fatalf("query returned empty IR")
	}
}

func TestQueryAzimuth90FavorsRightEar(t *testing.T) {
	d := makeTestDataset()
	r := d.Query(-45, 90, 1.0)
	if r.DelayRight >= r.DelayLeft {
		t.Errorf("delayLeft=%d delayRight=%d, want right ear to lead (smaller delay) at az=90", r.DelayLeft, r.DelayRight)
	}
}

func TestVoiceProcessNoNaN(t *testing.T) {
	d := makeTestDataset()
	v := NewVoice()
	v.SetTarget(d.Query(-45, 90, 1.0), 64)

	in := make([]float32, 64)
	in[0] = 1
	out := make([]float32, 128)
	v.Process(in, out, 64)

	for _, s := range out {
		if math.IsNaN(float64(s)) {
			t.Fatalf("NaN in HRTF voice output")
		}
	}
}

func TestSetTargetCrossfadesWithoutDiscontinuity(t *testing.T) {
	d := makeTestDataset()
	v := NewVoice()
	v.SetTarget(d.Query(-45, 0, 1.0), 32)

	in := make([]float32, 64)
	for i := range in {
		in[i] = 1
	}
	out1 := make([]float32, 128)
	v.Process(in[:32], out1, 32)

	v.SetTarget(d.Query(-45, 180, 1.0), 32)
	out2 := make([]float32, 128)
	v.Process(in[:32], out2, 32)

	// the first post-retarget sample should be close to the last
	// pre-retarget sample (fade starts at 0% new).
	if math.Abs(float64(out2[0]-out1[2*32-2])) > 0.5 {
		t.Errorf("large discontinuity at crossfade start: %v vs %v", out2[0], out1[2*32-2])
	}
}

func TestPrecomputeAmbiToBinauralProducesFiniteIRs(t *testing.T) {
	d := makeTestDataset()
	irs := d.PrecomputeAmbiToBinaural(16)
	if len(irs) == 0 {
		t.Fatalf("no IRs produced")
	}
	for _, ir := range irs {
		for _, v := range ir.Left {
			if math.IsNaN(float64(v)) {
				t.Fatalf("NaN in precomputed ambisonic IR")
			}
		}
	}
}
