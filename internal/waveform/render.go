// SPDX-License-Identifier: Unlicense OR MIT

// Package waveform rasterizes a block of audio samples into a Canvas.
package waveform

import (
	"errors"
	"fmt"
	"math"

	"quickScope/internal/framebuffer"
)

var ErrInvalidInput = errors.New("waveform: invalid input")

const (
	// Interpolation points per column segment, endpoints included.
	subdivisions = 64
	discRadius   = 1

	// Far past any real canvas, small enough that cy+radius cannot overflow.
	maxCoord = 1 << 24
)

// Render clears c and draws samples across its full width. Amplitude -1
// maps to the top row and +1 to the bottom edge; values outside that range
// are clipped at the canvas border instead of being clamped to it.
//
// Render needs at least two samples, a canvas at least two pixels wide and
// a Pix slice of exactly Width*Height. Otherwise it returns ErrInvalidInput
// and leaves c untouched.
func Render(samples []float32, c *framebuffer.Canvas) error {
	if err := validate(samples, c); err != nil {
		return err
	}

	c.Fill(framebuffer.Background)

	width, height := c.Width, c.Height
	last := len(samples) - 1
	h := float32(height)

	for x := 0; x < width-1; x++ {
		// Integer division truncates, biasing indices toward the block start.
		s1 := samples[x*last/(width-1)]
		s2 := samples[(x+1)*last/(width-1)]

		y1 := (s1 + 1) / 2 * h
		y2 := (s2 + 1) / 2 * h

		for i := 0; i <= subdivisions; i++ {
			t := float32(i) / subdivisions
			// Conversions stop the compiler fusing the multiply-adds, so the
			// output is identical on every architecture.
			py := float32((1-t)*y1) + float32(t*y2)
			px := float32(x) + t
			disc(c, pixel(px), pixel(py), discRadius)
		}
	}
	return nil
}

func validate(samples []float32, c *framebuffer.Canvas) error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil canvas", ErrInvalidInput)
	case len(samples) < 2:
		return fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidInput, len(samples))
	case c.Width < 2 || c.Height < 1:
		return fmt.Errorf("%w: canvas %dx%d too small", ErrInvalidInput, c.Width, c.Height)
	case len(c.Pix) != c.Width*c.Height:
		return fmt.Errorf("%w: canvas holds %d pixels, want %d", ErrInvalidInput, len(c.Pix), c.Width*c.Height)
	}
	return nil
}

// pixel converts a coordinate with saturation. NaN and negatives give 0.
func pixel(f float32) int {
	switch {
	case !(f > 0):
		return 0
	case f >= maxCoord:
		return maxCoord
	}
	return int(f)
}

// disc paints a filled circle by column. Columns are clamped to the canvas;
// a column stops at the first row Set rejects.
func disc(c *framebuffer.Canvas, cx, cy, radius int) {
	r2 := float32(radius * radius)

	x0 := max(cx-radius, 0)
	x1 := min(cx+radius, c.Width-1)

	for x := x0; x <= x1; x++ {
		dx := float32(x - cx)
		dy2 := r2 - dx*dx
		if dy2 < 0 {
			continue
		}
		dy := int(float32(math.Sqrt(float64(dy2))))

		for y := max(cy-dy, 0); y <= cy+dy; y++ {
			if !c.Set(x, y, framebuffer.Waveform) {
				break
			}
		}
	}
}
