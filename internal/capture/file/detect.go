// SPDX-License-Identifier: Unlicense OR MIT

package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Format is an audio container recognised by its magic bytes.
type Format string

const (
	Unknown Format = ""
	WAV     Format = ".wav"
	MP3     Format = ".mp3"
	FLAC    Format = ".flac"
	Ogg     Format = ".ogg"
)

// readCloser reads from Reader and closes the underlying source.
type readCloser struct {
	io.Reader
	c io.Closer
}

func (rc *readCloser) Close() error {
	return rc.c.Close()
}

// detectFormat reads the first 12 bytes to determine the file type, then
// returns a reader that starts again from byte 0.
func detectFormat(r io.ReadCloser) (Format, io.ReadCloser, error) {
	const headerSize = 12
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, nil, fmt.Errorf("reading magic bytes: %w", err)
	}
	header = header[:n]

	var f Format
	switch {
	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		f = WAV
	case len(header) >= 4 && string(header[:4]) == "fLaC":
		f = FLAC
	case len(header) >= 4 && string(header[:4]) == "OggS":
		f = Ogg
	case len(header) >= 3 && string(header[:3]) == "ID3":
		f = MP3
	case len(header) >= 2 && header[0] == 0xFF && (header[1]&0xF6) == 0xF2:
		f = MP3
	}

	return f, &readCloser{Reader: io.MultiReader(bytes.NewReader(header), r), c: r}, nil
}
