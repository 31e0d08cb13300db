// SPDX-License-Identifier: Unlicense OR MIT

// Package framebuffer holds the pixel surface shared between the capture
// callback and the display loop.
package framebuffer

import (
	"errors"
	"fmt"
)

// Color is a packed 0xRRGGBB pixel value. The top byte is unused.
type Color uint32

const (
	Background Color = 0x000000
	Waveform   Color = 0x00FF00
)

// RGB unpacks the color channels.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

var ErrInvalidSize = errors.New("framebuffer: invalid canvas size")

// Canvas is a row-major grid of pixels with a top-left origin.
type Canvas struct {
	Width  int
	Height int
	Pix    []Color
}

// NewCanvas allocates a background-filled canvas.
func NewCanvas(width, height int) (Canvas, error) {
	if width <= 0 || height <= 0 {
		return Canvas{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return Canvas{Width: width, Height: height, Pix: make([]Color, width*height)}, nil
}

// Valid reports whether Pix holds exactly Width*Height pixels.
func (c Canvas) Valid() bool {
	return c.Width > 0 && c.Height > 0 && len(c.Pix) == c.Width*c.Height
}

// In reports whether (x, y) lies on the canvas.
func (c Canvas) In(x, y int) bool {
	return x >= 0 && x < c.Width && y >= 0 && y < c.Height
}

// At returns the pixel at (x, y), or Background when off the canvas.
func (c Canvas) At(x, y int) Color {
	if !c.In(x, y) {
		return Background
	}
	return c.Pix[y*c.Width+x]
}

// Set paints (x, y) and reports whether the point was on the canvas.
func (c *Canvas) Set(x, y int, col Color) bool {
	if !c.In(x, y) {
		return false
	}
	c.Pix[y*c.Width+x] = col
	return true
}

// Fill paints every pixel.
func (c *Canvas) Fill(col Color) {
	for i := range c.Pix {
		c.Pix[i] = col
	}
}

// Clone returns a deep copy.
func (c Canvas) Clone() Canvas {
	pix := make([]Color, len(c.Pix))
	copy(pix, c.Pix)
	return Canvas{Width: c.Width, Height: c.Height, Pix: pix}
}
