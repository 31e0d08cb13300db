// SPDX-License-Identifier: Unlicense OR MIT

package capture

import (
	"encoding/binary"
	"math"
)

// DecodeFloat32LE decodes little-endian IEEE-754 samples from src into dst,
// growing dst only when it is too small. A trailing partial sample is
// ignored.
func DecodeFloat32LE(dst []float32, src []byte) []float32 {
	n := len(src) / 4
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return dst
}
