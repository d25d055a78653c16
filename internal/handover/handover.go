// Package handover implements the lock-free API-thread -> mixer-thread
// property publication discipline: mutations allocate a whole new property struct and
// publish it with a single atomic pointer exchange; retired structs
// are freed only once every voice generation that might still hold a
// reference has advanced past them.
package handover

import (
	"sync/atomic"
)

// Published holds the live property struct for one entity (a source,
// the listener, an effect slot). The zero value is not usable; use
// NewPublished.
type Published[T any] struct {
	ptr atomic.Pointer[T]
}

// NewPublished creates a Published already holding initial.
func NewPublished[T any](initial *T) *Published[T] {
	p := &Published[T]{}
	p.ptr.Store(initial)
	return p
}

// Load is called from the mixer thread at the top of each slice to
// snapshot the latest published value. The returned
// pointer is safe to hold for the rest of that slice's processing:
// publishers never mutate in place, they always swap in a new struct.
func (p *Published[T]) Load() *T {
	return p.ptr.Load()
}

// Publish is called from an API thread. It installs next as the new
// live value and returns the previous value, which the caller should
// hand to a Reclaimer rather than freeing directly, since a voice may
// still be mid-slice with a reference to it.
func (p *Published[T]) Publish(next *T) *T {
	return p.ptr.Swap(next)
}

// Retired is a pointer that has been superseded but might still be
// referenced by a voice that loaded it before the swap.
type Retired struct {
	value       any
	generation  uint64 // mixer generation at time of retirement
}

// Reclaimer defers freeing of retired property structs until no voice
// generation could still observe them. "Freeing" in Go just means
// dropping the last reference so the GC can collect it -- the value
// here is in making sure nothing holds the published pointer across
// more than a single slice.
//
// The caller keeps its own epoch counter: Retire is called with the
// current epoch when a new value is published, and Drain with the
// oldest epoch still in use, to let go of entries that have aged out.
type Reclaimer struct {
	pending []Retired
	epoch   uint64
}

// Retire records a just-superseded value, tagged with the mixer epoch
// current at the time of the swap.
func (r *Reclaimer) Retire(value any, currentEpoch uint64) {
	r.pending = append(r.pending, Retired{value: value, generation: currentEpoch})
}

// Drain releases (by dropping references to) every retired value
// whose generation is older than the oldest generation any live voice
// might still be reading -- i.e. it's safe to forget about entries
// published before minActiveGeneration.
func (r *Reclaimer) Drain(minActiveGeneration uint64) {
	kept := r.pending[:0]
	for _, p := range r.pending {
		if p.generation >= minActiveGeneration {
			kept = append(kept, p)
		}
	}
	r.pending = kept
}

// Pending reports how many retired values are still being held back,
// useful for tests and diagnostics.
func (r *Reclaimer) Pending() int { return len(r.pending) }

// Generation is a per-voice counter matched against its owning
// source's generation at snapshot time, so the mixer can detect a
// voice whose source was reassigned mid-flight.
type Generation struct {
	n atomic.Uint64
}

// Next advances and returns the new generation value. Called on the
// API thread whenever a source is (re)assigned to a voice.
func (g *Generation) Next() uint64 { return g.n.Add(1) }

// Current returns the generation without advancing it.
func (g *Generation) Current() uint64 { return g.n.Load() }
