// SPDX-License-Identifier: Unlicense OR MIT

package capture

import (
	"fmt"
	"sync/atomic"

	"quickScope/internal/framebuffer"
	"quickScope/internal/waveform"
)

// Callback renders every delivered block into a FrameBuffer. It runs on the
// audio thread, so it never logs or blocks on anything but the buffer lock.
// Failures are counted and the last one is kept for Stats.
type Callback struct {
	fb     *framebuffer.FrameBuffer
	render func([]float32, *framebuffer.Canvas) error

	rendered atomic.Uint64
	skipped  atomic.Uint64
	panics   atomic.Uint64
	lastErr  atomic.Pointer[error]
}

// Stats is a point-in-time view of the callback counters.
type Stats struct {
	Rendered uint64
	Skipped  uint64
	Panics   uint64
	LastErr  error
}

func NewCallback(fb *framebuffer.FrameBuffer) *Callback {
	return &Callback{fb: fb, render: waveform.Render}
}

// OnSamples implements Handler.
func (cb *Callback) OnSamples(block []float32) {
	defer func() {
		if r := recover(); r != nil {
			cb.panics.Add(1)
			cb.fail(fmt.Errorf("render panic: %v", r))
		}
	}()

	err := cb.fb.WithWrite(func(c *framebuffer.Canvas) error {
		return cb.render(block, c)
	})
	if err != nil {
		cb.skipped.Add(1)
		cb.fail(err)
		return
	}
	cb.rendered.Add(1)
}

func (cb *Callback) fail(err error) {
	cb.lastErr.Store(&err)
}

func (cb *Callback) Stats() Stats {
	s := Stats{
		Rendered: cb.rendered.Load(),
		Skipped:  cb.skipped.Load(),
		Panics:   cb.panics.Load(),
	}
	if p := cb.lastErr.Load(); p != nil {
		s.LastErr = *p
	}
	return s
}

// Sub returns the counter deltas since prev. LastErr is taken from s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Rendered: s.Rendered - prev.Rendered,
		Skipped:  s.Skipped - prev.Skipped,
		Panics:   s.Panics - prev.Panics,
		LastErr:  s.LastErr,
	}
}
