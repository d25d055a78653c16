package backend

import "sync"

// HeadlessSink drives render on demand without touching any real
// audio device; Pull reads exactly n bytes for callers that want to
// capture output (tests, offline render, the oalrender CLI's
// headless output mode) without a platform audio dependency.
type HeadlessSink struct {
	render RenderFunc
	mu     sync.Mutex
	active bool
}

// NewHeadlessSink wraps render for manual pulling via Pull.
func NewHeadlessSink(render RenderFunc) *HeadlessSink {
	return &HeadlessSink{render: render}
}

func (h *HeadlessSink) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = true
	return nil
}

func (h *HeadlessSink) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
	return nil
}

func (h *HeadlessSink) Close() error { return h.Stop() }

// Pull reads len(dst) bytes from the render function, as a real
// backend's own IO thread would; returns 0 if the sink isn't started.
func (h *HeadlessSink) Pull(dst []byte) (int, error) {
	h.mu.Lock()
	active := h.active
	h.mu.Unlock()
	if !active {
		return 0, nil
	}
	return h.render(dst)
}
