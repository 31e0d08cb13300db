// SPDX-License-Identifier: Unlicense OR MIT

package file

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickScope/internal/capture"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pcmWAV builds a 16-bit mono WAV file.
func pcmWAV(rate uint32, samples []int16) []byte {
	var b bytes.Buffer
	dataSize := uint32(len(samples) * 2)
	le := binary.LittleEndian

	b.WriteString("RIFF")
	_ = binary.Write(&b, le, 36+dataSize)
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, le, uint32(16))
	_ = binary.Write(&b, le, uint16(1)) // PCM
	_ = binary.Write(&b, le, uint16(1)) // mono
	_ = binary.Write(&b, le, rate)
	_ = binary.Write(&b, le, rate*2)
	_ = binary.Write(&b, le, uint16(2))
	_ = binary.Write(&b, le, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, le, dataSize)
	_ = binary.Write(&b, le, samples)
	return b.Bytes()
}

type nopSeekCloser struct {
	*bytes.Reader
	closed bool
}

func (n *nopSeekCloser) Close() error {
	n.closed = true
	return nil
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), WAV},
		{"id3 mp3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), MP3},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, MP3},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), FLAC},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), Ogg},
		{"riff but not wave", []byte("RIFF\x00\x00\x00\x00AVI LIST"), Unknown},
		{"too short", []byte("I"), Unknown},
		{"empty", nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := append(append([]byte{}, tt.header...), []byte("rest of stream")...)
			src := &nopSeekCloser{Reader: bytes.NewReader(payload)}

			got, rc, err := detectFormat(src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// The returned reader must replay the header.
			all, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, payload, all)

			require.NoError(t, rc.Close())
			assert.True(t, src.closed)
		})
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	src := &nopSeekCloser{Reader: bytes.NewReader([]byte("definitely not audio"))}
	_, err := Open(src, "notes.txt", Config{}, quietLogger())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)
	assert.True(t, src.closed)
}

func TestOpenWAVFallsBackToFileName(t *testing.T) {
	t.Parallel()

	src := &nopSeekCloser{Reader: bytes.NewReader(pcmWAV(8000, make([]int16, 100)))}
	s, err := Open(src, "tone.wav", Config{}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "tone.wav", s.Name())
	assert.Equal(t, "tone.wav", s.Title())
	assert.Equal(t, beep.SampleRate(8000), s.format.SampleRate)
}

func TestPipelineForwardsLeftChannel(t *testing.T) {
	t.Parallel()

	pcm := []int16{0, 16384, -16384, 32767, -32768, 8192}
	src := &nopSeekCloser{Reader: bytes.NewReader(pcmWAV(8000, pcm))}
	s, err := Open(src, "ramp.wav", Config{}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var got []float32
	st, err := s.pipeline(capture.HandlerFunc(func(block []float32) {
		got = append(got, block...)
	}))
	require.NoError(t, err)

	buf := make([][2]float64, 64)
	for {
		n, ok := st.Stream(buf)
		if !ok || n == 0 {
			break
		}
	}

	require.Len(t, got, len(pcm))
	for i, v := range pcm {
		assert.InDelta(t, float64(v)/32768, got[i], 1e-3, "sample %d", i)
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after the stream ended")
	}
}

func TestTapReusesBuffer(t *testing.T) {
	t.Parallel()

	var blocks [][]float32
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{0.5, -0.5}
		}
		return len(samples), true
	})
	tp := newTap(src, capture.HandlerFunc(func(block []float32) {
		blocks = append(blocks, block)
	}), 8)

	buf := make([][2]float64, 8)
	tp.Stream(buf)
	tp.Stream(buf)

	require.Len(t, blocks, 2)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, blocks[1])
	assert.Same(t, &blocks[0][0], &blocks[1][0])
}

func TestStartAfterClose(t *testing.T) {
	t.Parallel()

	src := &nopSeekCloser{Reader: bytes.NewReader(pcmWAV(8000, make([]int16, 10)))}
	s, err := Open(src, "short.wav", Config{}, quietLogger())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Error(t, s.Start(capture.HandlerFunc(func([]float32) {})))

	_, open := <-s.Errors()
	assert.False(t, open)
}
