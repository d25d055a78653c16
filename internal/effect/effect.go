// Package effect implements the auxiliary effect slot host and the
// concrete effect kinds it can run. Each effect
// implements three operations -- DeviceUpdate, Update, Process -- and
// the host dispatches to the active kind without runtime polymorphism
// surprises: a slot holds exactly one live Effect, recreated whenever
// its Kind changes.
package effect

// Kind enumerates the supported effect types. Zero value is Null (no
// processing; Process just leaves out_bus at zero).
type Kind int

const (
	Null Kind = iota
	Reverb
	Echo
	Chorus
	Equalizer
	Compressor
	Autowah
	PitchShifter
	Distortion
	FrequencyShifter
)

// Effect is the trait every concrete effect implements.
type Effect interface {
	// DeviceUpdate (re)allocates sample-rate-dependent buffers.
	DeviceUpdate(sampleRate float32)
	// Update recomputes coefficients from props. props is a
	// Kind-specific struct; implementations type-assert it. Pan gains
	// are not computed here: they live on Slot.PanGains.
	Update(props any)
	// Process filters exactly n samples from in into out (mono sum of
	// the slot's input bus). Parameter changes take effect at once;
	// no gain ramp is applied.
	Process(n int, in, out []float32)
}

// New constructs a zeroed Effect for the given kind. The host calls
// DeviceUpdate once and Update before the first Process.
func New(k Kind) Effect {
	switch k {
	case Reverb:
		return &ReverbEffect{}
	case Echo:
		return &EchoEffect{}
	case Chorus:
		return &ChorusEffect{}
	case Equalizer:
		return &EqualizerEffect{}
	case Compressor:
		return &CompressorEffect{}
	case Autowah:
		return &AutowahEffect{}
	case PitchShifter:
		return &PitchShifterEffect{}
	case Distortion:
		return &DistortionEffect{}
	case FrequencyShifter:
		return &FrequencyShifterEffect{}
	default:
		return nullEffect{}
	}
}

type nullEffect struct{}

func (nullEffect) DeviceUpdate(float32)    {}
func (nullEffect) Update(any)              {}
func (nullEffect) Process(n int, in, out []float32) {
	for i := 0; i < n; i++ {
		out[i] = 0
	}
}

// Slot is a bus that holds one effect instance: effect kind/props/
// state, output gain, routing target, and a
// dry-pan gain vector applied to the slot's output before it's summed
// into its target.
type Slot struct {
	Kind   Kind
	Effect Effect

	Gain float32

	// Target is either another slot's index (Slot.TargetIsSlot true) or
	// the device's main dry bus.
	Target       int
	TargetIsSlot bool

	PanGains []float32 // per output channel, applied after Effect.Process

	InputBus []float32 // zeroed at the start of every slice by the mixer loop
	workBuf  []float32
}

// NewSlot creates an empty (Null-kind) slot sized for sliceFrames.
func NewSlot(sliceFrames int) *Slot {
	return &Slot{
		Effect:   New(Null),
		Gain:     1,
		InputBus: make([]float32, sliceFrames),
		workBuf:  make([]float32, sliceFrames),
	}
}

// SetKind replaces the slot's effect instance when its type changes;
// per the lifecycle rule, effect state is recreated on type change.
func (s *Slot) SetKind(k Kind, sampleRate float32) {
	if s.Kind == k {
		return
	}
	s.Kind = k
	s.Effect = New(k)
	s.Effect.DeviceUpdate(sampleRate)
}

// Process runs this slot's effect over n samples of InputBus, scales
// by Gain, and mixes the result into dst (the target's input bus or
// the device dry bus), per output channel using PanGains.
func (s *Slot) Process(n int, dst [][]float32) {
	s.Effect.Process(n, s.InputBus, s.workBuf)
	for ch := 0; ch < len(dst) && ch < len(s.PanGains); ch++ {
		g := s.Gain * s.PanGains[ch]
		if g == 0 {
			continue
		}
		bus := dst[ch]
		for i := 0; i < n; i++ {
			bus[i] += s.workBuf[i] * g
		}
	}
}

// TopologicalOrder orders slots so that every slot is processed before
// the slot it targets (feeders before targets). Cycles are rejected at
// the API layer; this
// just performs the sort and reports whether one exists so callers can
// produce that error.
func TopologicalOrder(targets []int, targetIsSlot []bool) (order []int, ok bool) {
	n := len(targets)
	state := make([]int, n) // 0=unvisited 1=visiting 2=done
	order = make([]int, 0, n)

	var visit func(i int) bool
	visit = func(i int) bool {
		switch state[i] {
		case 1:
			return false // back-edge: cycle
		case 2:
			return true
		}
		state[i] = 1
		if targetIsSlot[i] {
			if !visit(targets[i]) {
				return false
			}
		}
		state[i] = 2
		order = append(order, i)
		return true
	}

	for i := 0; i < n; i++ {
		if state[i] == 0 {
			if !visit(i) {
				return nil, false
			}
		}
	}
	// The post-order above lists each target before its feeders.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, true
}
