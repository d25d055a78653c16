package handover

import "testing"

type sourceProps struct {
	Gain float32
}

func TestPublishLoadRoundTrip(t *testing.T) {
	p := NewPublished(&sourceProps{Gain: 1})
	if p.Load().Gain != 1 {
		t.Fatalf("initial load = %v, want 1", p.Load().Gain)
	}

	old := p.Publish(&sourceProps{Gain: 0.5})
	if old.Gain != 1 {
		t.Errorf("Publish returned %v, want the previous value (1)", old.Gain)
	}
	if p.Load().Gain != 0.5 {
		t.Errorf("Load after publish = %v, want 0.5", p.Load().Gain)
	}
}

func TestReclaimerHoldsUntilGenerationAdvances(t *testing.T) {
	var r Reclaimer
	r.Retire(&sourceProps{Gain: 1}, 5)

	r.Drain(3) // a voice might still be on generation 3..4
	if r.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1 (not yet safe to drop)", r.Pending())
	}

	r.Drain(6) // every live voice has moved past generation 5
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after generation advanced", r.Pending())
	}
}

func TestGenerationCounterAdvances(t *testing.T) {
	var g Generation
	first := g.Next()
	second := g.Next()
	if second <= first {
		t.Errorf("generation did not advance: %d -> %d", first, second)
	}
	if g.Current() != second {
		t.Errorf("Current() = %d, want %d", g.Current(), second)
	}
}
