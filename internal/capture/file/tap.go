// SPDX-License-Identifier: Unlicense OR MIT

package file

import (
	"github.com/gopxl/beep/v2"

	"quickScope/internal/capture"
)

// tap wraps a streamer on its way to the speaker and hands the left channel
// of every chunk to a capture.Handler.
type tap struct {
	s   beep.Streamer
	h   capture.Handler
	buf []float32

	// onErr is called once if the wrapped streamer fails.
	onErr func(error)
}

func newTap(s beep.Streamer, h capture.Handler, size int) *tap {
	return &tap{s: s, h: h, buf: make([]float32, size)}
}

func (t *tap) Err() error {
	return t.s.Err()
}

func (t *tap) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = t.s.Stream(samples)
	if n > 0 {
		if cap(t.buf) < n {
			t.buf = make([]float32, n)
		}
		block := t.buf[:n]
		for i := range block {
			block[i] = float32(samples[i][0])
		}
		t.h.OnSamples(block)
	}
	if !ok && t.onErr != nil {
		if err := t.s.Err(); err != nil {
			t.onErr(err)
			t.onErr = nil
		}
	}
	return n, ok
}
