package al

import (
	"io"
	"math/rand"

	"github.com/kcat/openal-soft-sub004/internal/ambisonic"
	"github.com/kcat/openal-soft-sub004/internal/backend"
	"github.com/kcat/openal-soft-sub004/internal/effect"
	"github.com/kcat/openal-soft-sub004/internal/format"
	"github.com/kcat/openal-soft-sub004/internal/handover"
	"github.com/kcat/openal-soft-sub004/internal/hrtf"
	"github.com/kcat/openal-soft-sub004/internal/hrtfdata"
	"github.com/kcat/openal-soft-sub004/internal/pan"
	"github.com/kcat/openal-soft-sub004/internal/voice"
)

// monitorNames is the fixed stereo target MonitorMix remaps to,
// regardless of the device's configured speaker layout.
var monitorNames = []string{"L", "R"}

// hrtfVirtualSpeakers is the sphere-sampling density
// PrecomputeAmbiToBinaural uses to build the device's ambisonic-to-
// binaural impulse responses: enough directions for a smooth
// reconstruction without making LoadHRTF noticeably slow.
const hrtfVirtualSpeakers = 32

// ambiChannels is the fixed width of the device's internal dry bus:
// every spatialized voice pans into this order-3 ACN/N3D ambisonic bus
// regardless of the device's final speaker layout, and a single decode
// pass at the end of each slice folds it down to the real output
// channels. DirectChannels sources write only into ambi channel 0 (the
// omnidirectional W channel), which is the same simplification
// internal/voice's dryTargetGains already bakes in for that mode.
const ambiChannels = ambisonic.MaxAmbiChannels

// Device owns the sample-rate/channel/format contract with a
// backend.Sink, the single Context it hosts (this engine keeps one
// context per device, see DESIGN.md), and every mixer-side buffer the
// Render loop touches.
type Device struct {
	SampleRate  int
	Layout      format.ChannelLayout
	SampleType  format.SampleType
	SliceFrames int

	channelNames []string
	deviceChans  int

	decoder   *ambisonic.Decoder
	hrtfSet   *hrtf.Dataset
	hrtfVoice *hrtf.AmbiVoice
	// hrtfScratch holds one slice's interleaved stereo HRTF output,
	// preallocated at construction so LoadHRTF's Render path never
	// allocates; only used when hrtfVoice is set.
	hrtfScratch []float32

	ambiBus   [ambiChannels][]float32
	auxBus    [][ambiChannels][]float32 // one 16-wide aux accumulator per effect slot
	outBus    [][]float32               // device-channel-wide decoded output
	interleave []float32

	// ditherBuf/ditherRNG support TPDF dithering of integer output
	// formats narrower than 24 bits before quantization; ditherBuf is
	// preallocated so quantizeInto never allocates.
	ditherBuf []float32
	ditherRNG *rand.Rand

	// monitorBus/monitorOut back MonitorMix: a stereo downmix of the
	// device's output independent of its configured speaker layout,
	// e.g. for headless metering. Preallocated at construction.
	monitorBus [2][]float32
	monitorOut [][]float32

	mixerSlots []*effect.Slot

	// topoTargets/topoTargetIsSlot are reused across Render calls by
	// slotTopoOrder, grown in lockstep with mixerSlots in addSlot so the
	// hot loop never allocates them. routeBuf is the single-element
	// destination slice reused whenever a slot routes to another slot's
	// input bus instead of the device dry bus.
	topoTargets      []int
	topoTargetIsSlot []bool
	routeBuf         [][]float32

	voices     []*voice.Voice
	voiceOwner []*Source // parallel to voices; nil when free
	freeVoices []int

	// reclaimer holds retired source/slot property snapshots until
	// they've aged out of every voice generation that could still
	// reference them; epoch increments once per Render call and tags
	// each retirement so Drain knows what's safe to forget.
	reclaimer handover.Reclaimer
	epoch     uint64

	sink backend.Sink

	*Context

	disconnected bool
}

// NewDevice opens an in-process device: no backend is attached here,
// callers wire one in (oto/ALSA/WAV/headless) via Attach once the
// device's rendering parameters are finalized.
func NewDevice(sampleRate int, layout ChannelLayout, sampleType SampleType, sliceFrames int) *Device {
	fmtLayout, fmtType := toFormatLayout(layout), toFormatSampleType(sampleType)
	names := format.ChannelNames(fmtLayout)
	d := &Device{
		SampleRate:  sampleRate,
		Layout:      fmtLayout,
		SampleType:  fmtType,
		SliceFrames: sliceFrames,

		channelNames: names,
		deviceChans:  len(names),

		decoder: ambisonic.NewSingleBand(defaultDecodeMatrix(names)),
	}
	for c := range d.ambiBus {
		d.ambiBus[c] = make([]float32, sliceFrames)
	}
	d.outBus = make([][]float32, d.deviceChans)
	for c := range d.outBus {
		d.outBus[c] = make([]float32, sliceFrames)
	}
	d.interleave = make([]float32, sliceFrames*d.deviceChans)
	d.ditherBuf = make([]float32, sliceFrames*d.deviceChans)
	d.ditherRNG = rand.New(rand.NewSource(1))
	d.routeBuf = make([][]float32, 1)
	d.hrtfScratch = make([]float32, sliceFrames*2)
	d.monitorBus[0] = make([]float32, sliceFrames)
	d.monitorBus[1] = make([]float32, sliceFrames)
	d.monitorOut = make([][]float32, 2)
	d.Context = newContext(d)
	return d
}

// LoadHRTF reads a MinPHR00 HRTF dataset and switches the device's
// final decode stage from the generic ACN speaker matrix to true
// binaural convolution: every render slice's ambisonic dry bus is
// convolved channel-by-channel against a precomputed set of
// ambisonic-to-binaural impulse responses (internal/hrtf's AmbiVoice)
// instead of being matrix-decoded. Only meaningful for a device opened
// with LayoutBinauralHRTF, whose two device channels are L/R ear
// signals rather than speaker feeds.
func (d *Device) LoadHRTF(r io.Reader) error {
	if d.Layout != format.BinauralHRTF {
		return ErrInvalidOperation
	}
	ds, err := hrtfdata.Load(r)
	if err != nil {
		return err
	}
	irs := ds.PrecomputeAmbiToBinaural(hrtfVirtualSpeakers)
	d.hrtfSet = ds
	d.hrtfVoice = hrtf.NewAmbiVoice(irs)
	return nil
}

// defaultDecodeMatrix builds a simple ACN/N3D decode matrix routing
// ambisonic content to a named speaker set: each speaker reads the W
// channel at full weight plus every higher-order (up to order 3)
// coefficient of its direction at half weight. This matrix is the
// only decoder NewDevice installs; no code path loads a decoder layout
// from internal/config.
func defaultDecodeMatrix(names []string) ambisonic.Matrix {
	dirs := map[string]pan.Vec3{
		"L":   {X: 0.7071, Y: 0.7071, Z: 0},
		"R":   {X: 0.7071, Y: -0.7071, Z: 0},
		"C":   {X: 1, Y: 0, Z: 0},
		"LFE": {X: 0, Y: 0, Z: 0},
		"Bl":  {X: -0.7071, Y: 0.7071, Z: 0},
		"Br":  {X: -0.7071, Y: -0.7071, Z: 0},
		"Sl":  {X: 0, Y: 1, Z: 0},
		"Sr":  {X: 0, Y: -1, Z: 0},
		"Bc":  {X: -1, Y: 0, Z: 0},
	}
	m := ambisonic.NewMatrix(len(names), ambiChannels)
	for s, name := range names {
		dir, ok := dirs[name]
		if !ok {
			continue
		}
		coeffs := pan.SHCoeffs(dir)
		m[s][0] = coeffs[0]
		if name == "LFE" {
			continue // LFE carries no directional decode, only whatever sources route to it explicitly
		}
		for c := 1; c < ambiChannels && c < len(coeffs); c++ {
			m[s][c] = coeffs[c] * 0.5
		}
	}
	return m
}

// addSlot grows the mixer-side slot array by one and returns its
// device index, wiring a matching EffectSlot handle and aux
// accumulator bus.
func (d *Device) addSlot() (*EffectSlot, int) {
	idx := len(d.mixerSlots)
	mixerSlot := effect.NewSlot(d.SliceFrames)
	d.mixerSlots = append(d.mixerSlots, mixerSlot)
	var aux [ambiChannels][]float32
	for c := range aux {
		aux[c] = make([]float32, d.SliceFrames)
	}
	d.auxBus = append(d.auxBus, aux)
	d.topoTargets = append(d.topoTargets, 0)
	d.topoTargetIsSlot = append(d.topoTargetIsSlot, false)
	return newEffectSlot(mixerSlot, d), idx
}

// allocVoice returns a free voice bound to initial, allocating a new
// one if the free list is empty.
func (d *Device) allocVoice(src *Source, initial *voice.Props, channelCount int) *voice.Voice {
	if n := len(d.freeVoices); n > 0 {
		idx := d.freeVoices[n-1]
		d.freeVoices = d.freeVoices[:n-1]
		v := d.voices[idx]
		v.Reset()
		prev := v.Publish(initial, src.generation.Next())
		d.reclaimer.Retire(prev, d.epoch)
		d.voiceOwner[idx] = src
		return v
	}
	v := voice.NewVoice(initial, channelCount)
	prev := v.Publish(initial, src.generation.Next())
	d.reclaimer.Retire(prev, d.epoch)
	d.voices = append(d.voices, v)
	d.voiceOwner = append(d.voiceOwner, src)
	return v
}

func (d *Device) freeVoiceSlot(v *voice.Voice) {
	for i, vv := range d.voices {
		if vv == v {
			d.voiceOwner[i] = nil
			d.freeVoices = append(d.freeVoices, i)
			return
		}
	}
}

// Attach records the backend.Sink driving this device, so Start/Stop
// can manage its lifecycle. Construct the sink with RenderFunc() as
// its pull callback before calling this.
func (d *Device) Attach(sink backend.Sink) {
	d.sink = sink
}

// Start/Stop forward to the attached backend.Sink, a no-op if none is
// attached yet.
func (d *Device) Start() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Start()
}

func (d *Device) Stop() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Stop()
}

// Close stops and releases the attached backend.
func (d *Device) Close() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Close()
}

// RenderFunc returns the pull callback a backend.Sink should call:
// dst is filled with interleaved, device-format PCM for as many whole
// frames as fit.
func (d *Device) RenderFunc() backend.RenderFunc {
	bytesPerFrame := sampleSize(d.SampleType) * d.deviceChans
	return func(dst []byte) (int, error) {
		frames := len(dst) / bytesPerFrame
		written := 0
		for written < frames {
			n := d.SliceFrames
			if n > frames-written {
				n = frames - written
			}
			d.Render(n)
			d.quantizeInto(dst[written*bytesPerFrame:], n)
			written += n
		}
		return written * bytesPerFrame, nil
	}
}

func sampleSize(t format.SampleType) int {
	switch t {
	case format.U8, format.S8:
		return 1
	case format.S16:
		return 2
	case format.S32, format.F32:
		return 4
	}
	return 2
}

// quantizeInto interleaves n frames of outBus, optionally dithers, and
// converts them to the device sample type, writing into dst.
func (d *Device) quantizeInto(dst []byte, n int) {
	for i := 0; i < n; i++ {
		for c := 0; c < d.deviceChans; c++ {
			d.interleave[i*d.deviceChans+c] = d.outBus[c][i]
		}
	}
	samples := n * d.deviceChans
	src := d.interleave[:samples]
	if lsb, ok := ditherLSB(d.SampleType); ok {
		format.Dither(d.ditherBuf[:samples], src, samples, lsb, d.ditherRNG)
		src = d.ditherBuf[:samples]
	}
	format.Quantize(d.SampleType, src, samples, dst)
}

// ditherLSB returns the dither noise amplitude (one quantization step
// in the [-1,1] float domain) for sample types narrow enough to
// benefit from TPDF dithering; wide/float formats skip it.
func ditherLSB(t format.SampleType) (float32, bool) {
	switch t {
	case format.S16:
		return 1.0 / 32767, true
	case format.S8, format.U8:
		return 1.0 / 127, true
	default:
		return 0, false
	}
}

// MonitorMix returns a stereo downmix of the last n rendered frames of
// device output, independent of the device's configured speaker
// layout -- useful for a headless metering view or a safety monitor
// feed when the main output is multichannel or binaural. The returned
// slices alias device-owned buffers and are only valid until the next
// Render/MonitorMix call.
func (d *Device) MonitorMix(n int) [][]float32 {
	zero(d.monitorBus[0][:n])
	zero(d.monitorBus[1][:n])
	format.Remap(d.channelNames, d.outBus, monitorNames, d.monitorBus[:], n)
	d.monitorOut[0] = d.monitorBus[0][:n]
	d.monitorOut[1] = d.monitorBus[1][:n]
	return d.monitorOut
}

// Render mixes exactly n (<= SliceFrames) frames: publish pending
// source/slot updates, zero every bus, process active voices into the
// ambisonic dry bus and their aux sends, run effect slots in
// topological order, decode the dry bus to the device's speakers, and
// advance every voice's free-list eligibility.
func (d *Device) Render(n int) {
	sr := float32(d.SampleRate)
	d.epoch++

	for c := range d.ambiBus {
		zero(d.ambiBus[c][:n])
	}
	for s := range d.auxBus {
		for c := range d.auxBus[s] {
			zero(d.auxBus[s][c][:n])
		}
	}
	for c := range d.outBus {
		zero(d.outBus[c][:n])
	}
	for s := range d.mixerSlots {
		zero(d.mixerSlots[s].InputBus[:n])
	}

	order, ok := d.slotTopoOrder()
	if !ok {
		order = nil // a cycle was rejected at SetSlotTarget time; render silence for slots rather than hang
	}

	for _, src := range d.Sources {
		if src.boundVoice.Load() == nil {
			continue
		}
		d.publishSourceProps(src)
	}

	for idx, v := range d.voices {
		src := d.voiceOwner[idx]
		if src == nil {
			continue
		}
		sends := src.props.Load().sends
		var sendBuses [voice.MaxSends][][]float32
		for s := range sends {
			if sends[s].Slot == nil {
				continue
			}
			slotIdx := d.slotIndex(sends[s].Slot)
			if slotIdx < 0 {
				continue
			}
			sendBuses[s] = d.auxBus[slotIdx][:]
		}
		v.Process(n, d.ambiBus[:], sendBuses, sr)
		if v.Idle() {
			d.freeVoiceSlot(v)
			src.boundVoice.Store(nil)
			src.setState(Stopped)
		}
	}

	for _, idx := range order {
		slot := d.Slots[idx]
		slot.applyPending(sr)
		downmixToMono(d.auxBus[idx], d.mixerSlots[idx].InputBus, n)

		if d.mixerSlots[idx].TargetIsSlot {
			d.routeBuf[0] = d.mixerSlots[d.mixerSlots[idx].Target].InputBus
			d.mixerSlots[idx].Process(n, d.routeBuf)
		} else {
			d.mixerSlots[idx].Process(n, d.ambiBus[:])
		}
	}

	if d.hrtfVoice != nil {
		scratch := d.hrtfScratch[:n*2]
		d.hrtfVoice.Process(d.ambiBus[:], scratch, n)
		for i := 0; i < n; i++ {
			d.outBus[0][i] += scratch[2*i]
			d.outBus[1][i] += scratch[2*i+1]
		}
	} else {
		d.decoder.DecodeSlice(d.ambiBus[:], d.outBus, n)
	}

	// By now every voice that loaded a snapshot during this slice is
	// done with it; anything retired before the previous slice can be
	// let go.
	if d.epoch > 1 {
		d.reclaimer.Drain(d.epoch - 1)
	}
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

func downmixToMono(src [ambiChannels][]float32, dst []float32, n int) {
	for i := 0; i < n; i++ {
		var acc float32
		for c := range src {
			acc += src[c][i]
		}
		dst[i] += acc
	}
}

func (d *Device) slotIndex(slot *EffectSlot) int {
	for i, s := range d.Slots {
		if s == slot {
			return i
		}
	}
	return -1
}

func (d *Device) slotTopoOrder() ([]int, bool) {
	for i, s := range d.mixerSlots {
		d.topoTargets[i], d.topoTargetIsSlot[i] = s.Target, s.TargetIsSlot
	}
	return effect.TopologicalOrder(d.topoTargets, d.topoTargetIsSlot)
}
