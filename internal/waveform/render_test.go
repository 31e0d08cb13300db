// SPDX-License-Identifier: Unlicense OR MIT

package waveform

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickScope/internal/framebuffer"
)

func newCanvas(t *testing.T, w, h int) framebuffer.Canvas {
	t.Helper()
	c, err := framebuffer.NewCanvas(w, h)
	require.NoError(t, err)
	return c
}

func noise(n int, scale float32) []float32 {
	rng := rand.New(rand.NewPCG(7, 11))
	out := make([]float32, n)
	for i := range out {
		out[i] = (rng.Float32()*2 - 1) * scale
	}
	return out
}

func assertTwoColors(t *testing.T, c framebuffer.Canvas) {
	t.Helper()
	for i, p := range c.Pix {
		if p != framebuffer.Background && p != framebuffer.Waveform {
			t.Fatalf("pixel %d has color %#06x", i, uint32(p))
		}
	}
}

func TestRenderSilenceDrawsCenterBand(t *testing.T) {
	t.Parallel()

	c := newCanvas(t, 10, 10)
	require.NoError(t, Render(make([]float32, 32), &c))

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := framebuffer.Background
			if y >= 4 && y <= 6 {
				want = framebuffer.Waveform
			}
			assert.Equal(t, want, c.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRenderEndpointMapping(t *testing.T) {
	t.Parallel()

	c := newCanvas(t, 10, 10)
	require.NoError(t, Render([]float32{-1, 1}, &c))

	// -1 lands on the top row, +1 on the bottom row.
	assert.Equal(t, framebuffer.Waveform, c.At(0, 0))
	assert.Equal(t, framebuffer.Waveform, c.At(9, 9))
	assert.Equal(t, framebuffer.Background, c.At(0, 9))
	assert.Equal(t, framebuffer.Background, c.At(3, 5))
}

func TestRenderSteepSlopeHasNoGaps(t *testing.T) {
	t.Parallel()

	c := newCanvas(t, 2, 50)
	require.NoError(t, Render([]float32{-1, 1}, &c))

	for y := 0; y < 50; y++ {
		assert.Equal(t, framebuffer.Waveform, c.At(0, y), "row %d", y)
	}
}

func TestRenderOnlyUsesTwoColors(t *testing.T) {
	t.Parallel()

	c := newCanvas(t, 540, 300)
	c.Fill(0x123456)
	require.NoError(t, Render(noise(1024, 1), &c))
	assertTwoColors(t, c)
}

func TestRenderClearsPreviousFrame(t *testing.T) {
	t.Parallel()

	silence := make([]float32, 64)

	reused := newCanvas(t, 80, 40)
	require.NoError(t, Render(noise(64, 1), &reused))
	require.NoError(t, Render(silence, &reused))

	fresh := newCanvas(t, 80, 40)
	require.NoError(t, Render(silence, &fresh))

	assert.Equal(t, fresh.Pix, reused.Pix)
}

func TestRenderOutOfRangeAmplitudes(t *testing.T) {
	t.Parallel()

	inf := float32(math.Inf(1))
	nan := float32(math.NaN())

	tests := []struct {
		name    string
		samples []float32
	}{
		{"all loud positive", []float32{5, 5, 5, 5}},
		{"all loud negative", []float32{-5, -5, -5}},
		{"alternating", []float32{5, -5, 5, -5, 5, -5}},
		{"infinities", []float32{inf, -inf, inf}},
		{"nan", []float32{nan, 0, nan}},
		{"huge noise", noise(257, 1e9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newCanvas(t, 20, 10)
			require.NotPanics(t, func() {
				require.NoError(t, Render(tt.samples, &c))
			})
			assertTwoColors(t, c)
		})
	}
}

func TestRenderBelowCanvasPaintsNothing(t *testing.T) {
	t.Parallel()

	c := newCanvas(t, 20, 10)
	require.NoError(t, Render([]float32{5, 5}, &c))

	for _, p := range c.Pix {
		assert.Equal(t, framebuffer.Background, p)
	}
}

func TestRenderRejectsDegenerateInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []float32
		canvas  framebuffer.Canvas
	}{
		{"no samples", nil, framebuffer.Canvas{Width: 4, Height: 4, Pix: make([]framebuffer.Color, 16)}},
		{"one sample", []float32{0.5}, framebuffer.Canvas{Width: 4, Height: 4, Pix: make([]framebuffer.Color, 16)}},
		{"one column", []float32{0, 0}, framebuffer.Canvas{Width: 1, Height: 4, Pix: make([]framebuffer.Color, 4)}},
		{"zero height", []float32{0, 0}, framebuffer.Canvas{Width: 4, Height: 0}},
		{"short pixels", []float32{0, 0}, framebuffer.Canvas{Width: 4, Height: 4, Pix: make([]framebuffer.Color, 15)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := tt.canvas
			c.Fill(framebuffer.Waveform)

			err := Render(tt.samples, &c)
			require.ErrorIs(t, err, ErrInvalidInput)

			for _, p := range c.Pix {
				assert.Equal(t, framebuffer.Waveform, p, "canvas must be untouched")
			}
		})
	}

	assert.ErrorIs(t, Render([]float32{0, 0}, nil), ErrInvalidInput)
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	samples := noise(960, 1.2)

	a := newCanvas(t, 540, 300)
	b := newCanvas(t, 540, 300)
	require.NoError(t, Render(samples, &a))
	require.NoError(t, Render(samples, &b))
	require.NoError(t, Render(samples, &b))

	assert.Equal(t, a.Pix, b.Pix)
}

func TestPixelSaturates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, pixel(-3.7))
	assert.Equal(t, 0, pixel(float32(math.NaN())))
	assert.Equal(t, 3, pixel(3.99))
	assert.Equal(t, maxCoord, pixel(float32(math.Inf(1))))
}

func TestDiscClipsToCanvas(t *testing.T) {
	t.Parallel()

	painted := func(c framebuffer.Canvas) [][2]int {
		var out [][2]int
		for y := range c.Height {
			for x := range c.Width {
				if c.At(x, y) == framebuffer.Waveform {
					out = append(out, [2]int{x, y})
				}
			}
		}
		return out
	}

	tests := []struct {
		name   string
		cx, cy int
		want   [][2]int
	}{
		{"interior", 1, 1, [][2]int{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}}},
		{"top left corner", 0, 0, [][2]int{{0, 0}, {1, 0}, {0, 1}}},
		{"bottom right corner", 3, 2, [][2]int{{3, 1}, {2, 2}, {3, 2}}},
		{"one row below", 1, 3, [][2]int{{1, 2}}},
		{"far below", 1, maxCoord, nil},
		{"far right", maxCoord, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newCanvas(t, 4, 3)
			disc(&c, tt.cx, tt.cy, discRadius)
			assert.Equal(t, tt.want, painted(c))
		})
	}
}

func BenchmarkRender(b *testing.B) {
	c, _ := framebuffer.NewCanvas(540, 300)
	samples := noise(1024, 1)
	b.ReportAllocs()
	for b.Loop() {
		_ = Render(samples, &c)
	}
}
