// Package backend adapts the device-format-converter output to a
// platform audio sink. The mixer never blocks on a backend call and a
// backend never blocks the mixer thread: backends are pull sinks that
// call back into the engine's render function exactly when they need
// more samples, so the only suspension point in the whole pipeline is
// the backend's own callback.
package backend

import "io"

// Sink is the minimal lifecycle every backend exposes. Render
// (supplied at construction) is called from the backend's own
// callback/IO thread, never from the API thread.
type Sink interface {
	Start() error
	Stop() error
	Close() error
}

// RenderFunc fills dst with the next len(dst) bytes of device-format
// PCM; implementations are expected to be allocation-free and to never
// block beyond waiting on the mixer's own (also non-blocking) slice
// processing.
type RenderFunc func(dst []byte) (n int, err error)

// pullReader adapts a RenderFunc to io.Reader for sinks (like oto)
// built around the io.Reader pull contract.
type pullReader struct {
	render RenderFunc
}

func (p pullReader) Read(dst []byte) (int, error) { return p.render(dst) }

// AsReader exposes a RenderFunc as an io.Reader.
func AsReader(render RenderFunc) io.Reader { return pullReader{render: render} }
