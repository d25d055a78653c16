//go:build !headless

package backend

import (
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays device-format PCM through the ebitengine/oto/v3 cross
// platform output, using the same pull-based player construction as
// this engine's other oto-backed code, widened to the device's
// channel count and format instead of oto's mono float32 default.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player

	mu      sync.Mutex
	started bool
}

// NewOtoSink opens an oto context at the given sample rate/channel
// count/bytes-per-sample and wires render as its pull source.
func NewOtoSink(sampleRate, channelCount, bytesPerSample int, render RenderFunc) (*OtoSink, error) {
	format := oto.FormatSignedInt16LE
	switch bytesPerSample {
	case 4:
		format = oto.FormatFloat32LE
	case 1:
		format = oto.FormatUnsignedInt8
	}

	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       format,
		BufferSize:   0, // oto default, tuned per platform
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{ctx: ctx}
	s.player = ctx.NewPlayer(AsReader(render))
	return s, nil
}

func (s *OtoSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.player.Play()
		s.started = true
	}
	return nil
}

func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		err := s.player.Close()
		s.started = false
		return err
	}
	return nil
}

func (s *OtoSink) Close() error {
	_ = s.Stop()
	return nil
}
