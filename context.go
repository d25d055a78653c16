package al

import "github.com/kcat/openal-soft-sub004/internal/effect"

// Context owns every allocatable object hosted by a Device: the
// Listener, Sources, Buffers, and EffectSlots. This engine keeps
// exactly one Context per Device (see DESIGN.md) rather than modeling
// OpenAL's many-contexts-per-device indirection, since nothing in this
// mixer's design needs more than one live render graph per device.
type Context struct {
	device *Device

	Listener *Listener
	Sources  []*Source
	Buffers  []*Buffer
	Slots    []*EffectSlot
}

func newContext(d *Device) *Context {
	l := NewListener()
	l.dev = d
	return &Context{
		device:   d,
		Listener: l,
	}
}

// NewSource allocates a Source bound to this context. The source has
// no voice until Play is called.
func (c *Context) NewSource() *Source {
	s := NewSource(c.device)
	c.Sources = append(c.Sources, s)
	return s
}

// DeleteSource stops s (if playing) and removes it from the context.
// Any buffers still queued on it are released.
func (c *Context) DeleteSource(s *Source) error {
	idx := -1
	for i, src := range c.Sources {
		if src == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrInvalidName
	}
	if v := s.boundVoice.Load(); v != nil {
		c.device.freeVoiceSlot(v)
	}
	for _, qb := range s.queue {
		qb.buf.release()
	}
	c.Sources = append(c.Sources[:idx], c.Sources[idx+1:]...)
	return nil
}

// NewBuffer creates a Buffer holding the given decoded planar PCM
// channels and tracks it in the context.
func (c *Context) NewBuffer(sampleType SampleType, layout ChannelLayout, rate int, channels [][]float32) *Buffer {
	b := NewBuffer(sampleType, layout, rate, channels)
	c.Buffers = append(c.Buffers, b)
	return b
}

// DeleteBuffer removes b from the context; fails with
// ErrInvalidOperation if any source still has it queued.
func (c *Context) DeleteBuffer(b *Buffer) error {
	if b.IsInUse() {
		return ErrInvalidOperation
	}
	for i, buf := range c.Buffers {
		if buf == b {
			c.Buffers = append(c.Buffers[:i], c.Buffers[i+1:]...)
			return nil
		}
	}
	return ErrInvalidName
}

// NewAuxEffectSlot allocates an EffectSlot on the device, defaulting
// to the null effect routed straight to the device dry bus.
func (c *Context) NewAuxEffectSlot() *EffectSlot {
	slot, _ := c.device.addSlot()
	c.Slots = append(c.Slots, slot)
	return slot
}

// DeleteAuxEffectSlot deactivates slot: its effect reverts to Null and
// its target clears. The slot's device index is left in place rather
// than reclaimed, since other slots may still carry a numeric Target
// pointing at it; any source send still referencing it simply stops
// contributing, the same tolerance QueueBuffers/UnqueueBuffers has for
// stale references elsewhere in this API.
func (c *Context) DeleteAuxEffectSlot(slot *EffectSlot) error {
	for _, s := range c.Slots {
		if s == slot {
			s.SetEffect(EffectNull, nil)
			s.setTarget(0, false)
			return nil
		}
	}
	return ErrInvalidName
}

// SetSlotTarget routes slot's output to another slot, or to the
// device dry bus when target is nil. Routing that would create a
// cycle is rejected without changing either slot's state, since
// detecting a cycle requires checking every slot's target at once.
func (c *Context) SetSlotTarget(slot, target *EffectSlot) error {
	slotIdx := c.device.slotIndex(slot)
	if slotIdx < 0 {
		return ErrInvalidName
	}
	if target == nil {
		slot.setTarget(0, false)
		return nil
	}
	targetIdx := c.device.slotIndex(target)
	if targetIdx < 0 {
		return ErrInvalidName
	}

	targets := make([]int, len(c.Slots))
	targetIsSlot := make([]bool, len(c.Slots))
	for i, s := range c.Slots {
		targets[i], targetIsSlot[i] = s.target()
	}
	targets[slotIdx], targetIsSlot[slotIdx] = targetIdx, true
	if _, ok := effect.TopologicalOrder(targets, targetIsSlot); !ok {
		return ErrInvalidOperation
	}

	slot.setTarget(targetIdx, true)
	return nil
}

// BindSend wires source send n to target (nil to disable it).
func (c *Context) BindSend(src *Source, n int, target *EffectSlot, fp FilterParams) error {
	return src.SetSend(n, target, fp)
}
