// SPDX-License-Identifier: Unlicense OR MIT

// Package capture adapts audio sources to the shared frame buffer.
package capture

import "errors"

var (
	// ErrDeviceUnavailable means no usable input could be opened. It is
	// fatal at startup.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
	// ErrStreamRuntime wraps errors reported by a running stream. They are
	// logged; the stream is left to carry on or tear itself down.
	ErrStreamRuntime = errors.New("capture: stream error")
)

// Handler receives each block of mono float samples. The block is only
// valid for the duration of the call.
type Handler interface {
	OnSamples(block []float32)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(block []float32)

func (f HandlerFunc) OnSamples(block []float32) { f(block) }

// Source is an audio stream that pushes blocks to a Handler from its own
// goroutine or thread.
type Source interface {
	Name() string
	Start(h Handler) error
	// Errors delivers asynchronous stream errors. It is closed by Close.
	Errors() <-chan error
	Close() error
}

// Report posts err without blocking. It reports whether there was room.
func Report(ch chan<- error, err error) bool {
	select {
	case ch <- err:
		return true
	default:
		return false
	}
}
