// SPDX-License-Identifier: Unlicense OR MIT

package framebuffer

import "sync"

// FrameBuffer is a fixed-size Canvas guarded by a mutex. The only ways in
// are WithWrite and Snapshot, so a reader never sees a half-written frame.
type FrameBuffer struct {
	mu     sync.Mutex
	canvas Canvas
}

// New creates a background-filled buffer. The size never changes afterwards.
func New(width, height int) (*FrameBuffer, error) {
	c, err := NewCanvas(width, height)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{canvas: c}, nil
}

// Size returns the canvas dimensions.
func (fb *FrameBuffer) Size() (width, height int) {
	// Dimensions are immutable after New.
	return fb.canvas.Width, fb.canvas.Height
}

// WithWrite runs fn with exclusive access to the canvas. The lock is
// released when fn returns or panics.
//
// fn must not keep the canvas or its Pix slice after returning.
func (fb *FrameBuffer) WithWrite(fn func(c *Canvas) error) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fn(&fb.canvas)
}

// Snapshot copies the canvas under the lock. The copy is owned by the caller.
func (fb *FrameBuffer) Snapshot() Canvas {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.canvas.Clone()
}
