// SPDX-License-Identifier: Unlicense OR MIT

// Package display moves committed frames from the FrameBuffer to a window.
package display

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"quickScope/internal/framebuffer"
)

// ErrPresentation means the window could not show a frame. The loop cannot
// continue without a display.
var ErrPresentation = errors.New("display: presentation failed")

// Presenter shows one frame. The frame is owned by the presenter once the
// call starts.
type Presenter interface {
	Present(frame framebuffer.Canvas) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(frame framebuffer.Canvas) error

func (f PresenterFunc) Present(frame framebuffer.Canvas) error { return f(frame) }

// Loop performs display iterations against one FrameBuffer. The window
// toolkit owns the cadence and calls Frame once per refresh.
type Loop struct {
	fb     *framebuffer.FrameBuffer
	frames atomic.Uint64
}

func NewLoop(fb *framebuffer.FrameBuffer) *Loop {
	return &Loop{fb: fb}
}

// Frame copies the latest committed canvas and presents it outside the lock.
// Frames written since the last call and never presented are simply skipped.
func (l *Loop) Frame(p Presenter) error {
	frame := l.fb.Snapshot()
	if err := p.Present(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrPresentation, err)
	}
	l.frames.Add(1)
	return nil
}

// Frames is the number of frames presented so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// ToRGBA converts c into an opaque RGBA image, reusing dst when it already
// has the right bounds.
func ToRGBA(c framebuffer.Canvas, dst *image.RGBA) *image.RGBA {
	bounds := image.Rect(0, 0, c.Width, c.Height)
	if dst == nil || dst.Rect != bounds {
		dst = image.NewRGBA(bounds)
	}
	for i, col := range c.Pix {
		r, g, b := col.RGB()
		o := i * 4
		dst.Pix[o+0] = r
		dst.Pix[o+1] = g
		dst.Pix[o+2] = b
		dst.Pix[o+3] = 0xFF
	}
	return dst
}
