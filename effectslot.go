package al

import (
	"github.com/kcat/openal-soft-sub004/internal/effect"
	"github.com/kcat/openal-soft-sub004/internal/handover"
)

// effectSlotProps is the whole-value snapshot published by the API
// side and applied by the device's render loop, mirroring the same
// handover discipline used for source/voice properties.
type effectSlotProps struct {
	Kind         EffectType
	Params       any // Kind-specific props struct (effect.EchoProps, effect.ReverbProps, ...)
	Gain         float32
	Target       int
	TargetIsSlot bool

	SendFilter FilterParams // applied to the per-source aux send that feeds this slot
}

// FilterParams is the public (gain, gainHF, gainLF) direct/send filter
// tuple; EffectSlot and Source both use it to describe a low/high-shelf
// applied at a send or direct path.
type FilterParams struct {
	Gain        float32
	GainHF      float32
	HFReference float32
	GainLF      float32
	LFReference float32
}

// EffectSlot is an auxiliary effects bus: one live effect instance fed
// by any number of source sends, whose output mixes into the device's
// dry bus or another slot.
type EffectSlot struct {
	mixer *effect.Slot // device-owned mixer-side slot this wraps
	dev   *Device      // back-reference for epoch-tagged reclamation

	props *handover.Published[effectSlotProps]

	// slotPanGain is the reused single-element PanGains slice for the
	// TargetIsSlot case, so applyPending never allocates on the hot
	// path.
	slotPanGain []float32
}

func newEffectSlot(mixerSlot *effect.Slot, dev *Device) *EffectSlot {
	return &EffectSlot{
		mixer:       mixerSlot,
		dev:         dev,
		props:       handover.NewPublished(&effectSlotProps{Gain: 1}),
		slotPanGain: []float32{1},
	}
}

// publish installs next as the slot's live snapshot and hands the
// superseded one to the device's reclaimer rather than discarding it.
func (e *EffectSlot) publish(next *effectSlotProps) {
	prev := e.props.Publish(next)
	e.dev.reclaimer.Retire(prev, e.dev.epoch)
}

// SetEffect selects the effect kind and its kind-specific parameters in
// one publish (the two are changed atomically so the mixer never
// applies a parameter struct meant for the previous kind).
func (e *EffectSlot) SetEffect(kind EffectType, params any) {
	next := *e.props.Load()
	next.Kind, next.Params = kind, params
	e.publish(&next)
}

func (e *EffectSlot) SetGain(g float32) error {
	if g < 0 || g > 1 {
		return ErrInvalidValue
	}
	next := *e.props.Load()
	next.Gain = g
	e.publish(&next)
	return nil
}

// setTarget routes this slot's output to another slot (targetIsSlot
// true, target is that slot's device index) or to the device's main
// dry bus (targetIsSlot false). Context validates against cycles
// before calling this, since detecting one requires seeing every
// slot's target at once.
func (e *EffectSlot) setTarget(target int, targetIsSlot bool) {
	next := *e.props.Load()
	next.Target, next.TargetIsSlot = target, targetIsSlot
	e.publish(&next)
}

// target reports this slot's currently published routing, independent
// of whether a render slice has applied it to the mixer-side slot yet;
// Context's cycle check reads this rather than the mixer snapshot so
// back-to-back SetSlotTarget calls see each other immediately.
func (e *EffectSlot) target() (int, bool) {
	p := e.props.Load()
	return p.Target, p.TargetIsSlot
}

// setSendFilter records the filter a particular source send applies
// before this slot's input; Context keeps per-send filters on the
// Source side, so this is used only when a slot needs its own
// diagnostics/default.
func (e *EffectSlot) setSendFilter(fp FilterParams) {
	next := *e.props.Load()
	next.SendFilter = fp
	e.publish(&next)
}

// applyPending pushes the latest published props into the mixer-side
// effect.Slot; called once per render slice from the device's Render
// loop, after the voices have mixed and just before this slot is
// processed in topological order.
func (e *EffectSlot) applyPending(sampleRate float32) {
	p := e.props.Load()
	e.mixer.SetKind(effect.Kind(p.Kind), sampleRate)
	e.mixer.Effect.Update(p.Params)
	e.mixer.Gain = p.Gain
	e.mixer.Target = p.Target
	e.mixer.TargetIsSlot = p.TargetIsSlot

	if p.TargetIsSlot {
		e.mixer.PanGains = e.slotPanGain
		return
	}
	if len(e.mixer.PanGains) != ambiChannels {
		e.mixer.PanGains = make([]float32, ambiChannels)
	} else {
		for i := range e.mixer.PanGains {
			e.mixer.PanGains[i] = 0
		}
	}
	e.mixer.PanGains[0] = 1 // effect output returns through the omnidirectional W channel
}
