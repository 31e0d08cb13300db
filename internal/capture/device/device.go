// SPDX-License-Identifier: Unlicense OR MIT

// Package device captures live audio with miniaudio through malgo.
package device

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"quickScope/internal/capture"
)

// Config selects and shapes the capture stream. Zero values leave the
// choice to the device.
type Config struct {
	Device       string
	Loopback     bool
	SampleRate   uint32
	BufferFrames uint32
}

// Source is a capture.Source backed by a miniaudio device. Samples are
// requested as mono float32 so miniaudio does any conversion.
type Source struct {
	cfg  Config
	log  *slog.Logger
	ctx  *malgo.AllocatedContext
	info Info

	mu      sync.Mutex
	device  *malgo.Device
	errs    chan error
	buf     []float32
	closing atomic.Bool
}

var _ capture.Source = (*Source)(nil)

func deviceType(loopback bool) malgo.DeviceType {
	if loopback {
		return malgo.Loopback
	}
	return malgo.Capture
}

// enumerationType is the device list a stream of the given mode binds to.
// Loopback records what a playback device is playing.
func enumerationType(loopback bool) malgo.DeviceType {
	if loopback {
		return malgo.Playback
	}
	return malgo.Capture
}

func initContext(log *slog.Logger) (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", capture.ErrDeviceUnavailable, err)
	}
	return ctx, nil
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// Open initializes miniaudio and resolves the configured device. The stream
// itself is created by Start.
func Open(cfg Config, log *slog.Logger) (*Source, error) {
	log = log.With("component", "device")

	ctx, err := initContext(log)
	if err != nil {
		return nil, err
	}

	infos, err := ctx.Devices(enumerationType(cfg.Loopback))
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("%w: enumerate devices: %v", capture.ErrDeviceUnavailable, err)
	}

	devices := describe(infos)
	info, ok := Select(devices, cfg.Device)
	if !ok {
		freeContext(ctx)
		if cfg.Device == "" {
			return nil, fmt.Errorf("%w: no audio devices found", capture.ErrDeviceUnavailable)
		}
		return nil, fmt.Errorf("%w: no device matches %q (%d available)",
			capture.ErrDeviceUnavailable, cfg.Device, len(devices))
	}

	log.Info("selected audio device", "device", info.String(), "loopback", cfg.Loopback)

	return &Source{
		cfg:  cfg,
		log:  log,
		ctx:  ctx,
		info: info,
		errs: make(chan error, 10),
	}, nil
}

// minBufferFrames keeps the decode buffer usable even if a backend reports
// no sample rate.
const minBufferFrames = 4096

// callbackBuffer sizes the decode buffer once a stream exists. miniaudio
// does not expose the period it settled on, so without an explicit period
// the buffer holds a full second at the stream rate.
func callbackBuffer(periodFrames, sampleRate uint32) []float32 {
	return make([]float32, 0, max(periodFrames, sampleRate, minBufferFrames))
}

// period is the part of input the data callback decodes: frames mono
// float32 samples, bounded by the bytes delivered and the buffer capacity.
func period(input []byte, frames uint32, capacity int) []byte {
	n := min(int(frames), capacity) * 4
	return input[:min(n, len(input))]
}

// List enumerates devices usable in the given mode.
func List(loopback bool, log *slog.Logger) ([]Info, error) {
	ctx, err := initContext(log)
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx)

	infos, err := ctx.Devices(enumerationType(loopback))
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", capture.ErrDeviceUnavailable, err)
	}
	return describe(infos), nil
}

func (s *Source) Name() string { return s.info.String() }

func (s *Source) Errors() <-chan error { return s.errs }

// Start creates and starts the stream. h is called on miniaudio's device
// thread.
func (s *Source) Start(h capture.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return fmt.Errorf("device %s already started", s.Name())
	}

	cfg := malgo.DefaultDeviceConfig(deviceType(s.cfg.Loopback))
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.Capture.DeviceID = s.info.raw.ID.Pointer()
	cfg.SampleRate = s.cfg.SampleRate
	cfg.PeriodSizeInFrames = s.cfg.BufferFrames
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frames uint32) {
			s.buf = capture.DecodeFloat32LE(s.buf, period(input, frames, cap(s.buf)))
			h.OnSamples(s.buf)
		},
		Stop: s.onStop,
	}

	dev, err := malgo.InitDevice(s.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("%w: init device %s: %v", capture.ErrDeviceUnavailable, s.Name(), err)
	}
	// The data callback only runs after Start.
	s.buf = callbackBuffer(s.cfg.BufferFrames, dev.SampleRate())
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("%w: start device %s: %v", capture.ErrDeviceUnavailable, s.Name(), err)
	}
	s.device = dev

	s.log.Info("capture started",
		"sample_rate", dev.SampleRate(),
		"format", dev.CaptureFormat(),
		"period_frames", s.cfg.BufferFrames)
	return nil
}

// onStop runs on the device thread when the stream stops. Only stops that
// Close did not ask for are reported.
func (s *Source) onStop() {
	if s.closing.Load() {
		return
	}
	capture.Report(s.errs, fmt.Errorf("%w: device %s stopped unexpectedly", capture.ErrStreamRuntime, s.Name()))
}

// Close stops the stream and releases miniaudio. Uninit waits for running
// callbacks, so nothing writes to the error channel after it is closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.device != nil {
		err = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	freeContext(s.ctx)
	close(s.errs)

	s.log.Info("capture stopped")
	return err
}
