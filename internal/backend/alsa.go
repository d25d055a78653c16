//go:build linux && !headless

package backend

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate, unsigned int channels, snd_pcm_format_t format) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, format);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, channels);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static snd_pcm_sframes_t writePCM(snd_pcm_t* handle, void* buffer, snd_pcm_uframes_t frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// ALSASink drives a native ALSA PCM device directly via cgo, for Linux
// hosts that want to bypass oto. Unlike oto's pull-via-io.Reader model,
// ALSA's blocking snd_pcm_writei wants a thread of its own: ALSASink
// runs render in a dedicated goroutine and blocks that goroutine inside
// writePCM, never the mixer.
type ALSASink struct {
	handle *C.snd_pcm_t
	render RenderFunc

	channels       int
	bytesPerFrame  int
	sliceFrames    int

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewALSASink opens the default ALSA device at sampleRate/channels in
// signed 16-bit little-endian format.
func NewALSASink(sampleRate, channels, sliceFrames int, render RenderFunc) (*ALSASink, error) {
	var cerr C.int
	handle := C.openPCM(C.CString("default"), &cerr)
	if cerr < 0 {
		return nil, fmt.Errorf("alsa: open PCM device: %s", C.GoString(C.snd_strerror(cerr)))
	}
	if err := C.setupPCM(handle, C.uint(sampleRate), C.uint(channels), C.SND_PCM_FORMAT_S16_LE); err < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("alsa: setup PCM: %s", C.GoString(C.snd_strerror(err)))
	}
	return &ALSASink{
		handle:        handle,
		render:        render,
		channels:      channels,
		bytesPerFrame: channels * 2,
		sliceFrames:   sliceFrames,
	}, nil
}

func (a *ALSASink) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	a.started = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop(a.stop, a.done)
	return nil
}

func (a *ALSASink) loop(stop, done chan struct{}) {
	defer close(done)
	buf := make([]byte, a.sliceFrames*a.bytesPerFrame)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := a.render(buf)
		if err != nil || n == 0 {
			return
		}
		frames := C.snd_pcm_uframes_t(n / a.bytesPerFrame)
		written := C.writePCM(a.handle, unsafe.Pointer(&buf[0]), frames)
		if written < 0 {
			if written == -C.EPIPE {
				C.snd_pcm_prepare(a.handle)
				continue
			}
			return
		}
	}
}

func (a *ALSASink) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	close(a.stop)
	<-a.done
	a.started = false
	return nil
}

func (a *ALSASink) Close() error {
	_ = a.Stop()
	if a.handle != nil {
		C.closePCM(a.handle)
		a.handle = nil
	}
	return nil
}
