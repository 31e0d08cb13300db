// SPDX-License-Identifier: Unlicense OR MIT

// Package file plays an audio file through the speaker and feeds what is
// being played to a capture.Handler.
package file

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"quickScope/internal/capture"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Chunks handed to the speaker, and so to the handler, per second.
const blocksPerSecond = 30

type Config struct {
	Loop bool
	// Volume is a base-2 exponent; 0 leaves the level unchanged.
	Volume float64
}

// Source is a capture.Source that decodes a file and plays it.
type Source struct {
	name   string
	title  string
	cfg    Config
	log    *slog.Logger
	stream beep.StreamSeekCloser
	format beep.Format

	mu      sync.Mutex
	started bool
	closed  bool
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

var _ capture.Source = (*Source)(nil)

// Open decodes the header of r. name is used for logging and as the title
// when the file carries no tags. Open takes ownership of r.
func Open(r io.ReadCloser, name string, cfg Config, log *slog.Logger) (*Source, error) {
	log = log.With("component", "file", "file", name)

	title := readTitle(r, log)
	if title == "" {
		title = name
	}

	f, rc, err := detectFormat(r)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("%w: %s: %v", capture.ErrDeviceUnavailable, name, err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch f {
	case MP3:
		stream, format, err = mp3.Decode(rc)
	case WAV:
		stream, format, err = wav.Decode(rc)
	case FLAC:
		stream, format, err = flac.Decode(rc)
	case Ogg:
		stream, format, err = vorbis.Decode(rc)
	default:
		_ = rc.Close()
		return nil, fmt.Errorf("%w: %s: %w", capture.ErrDeviceUnavailable, name, ErrUnsupportedFormat)
	}
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%w: decoding %s: %v", capture.ErrDeviceUnavailable, name, err)
	}

	log.Info("opened audio file",
		"format", string(f),
		"title", title,
		"sample_rate", int(format.SampleRate),
		"channels", format.NumChannels)

	return &Source{
		name:   name,
		title:  title,
		cfg:    cfg,
		log:    log,
		stream: stream,
		format: format,
		errs:   make(chan error, 10),
		done:   make(chan struct{}),
	}, nil
}

// readTitle formats "Artist - Title" from tags when r can seek back after
// reading them.
func readTitle(r io.Reader, log *slog.Logger) string {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return ""
	}
	defer func() {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			log.Warn("rewinding after tag read", "error", err)
		}
	}()

	m, err := tag.ReadFrom(rs)
	if err != nil {
		log.Debug("no tags", "error", err)
		return ""
	}
	switch {
	case m.Title() == "":
		return ""
	case m.Artist() == "":
		return m.Title()
	}
	return m.Artist() + " - " + m.Title()
}

func (s *Source) Name() string { return s.name }

// Title is the track title from tags, or the file name.
func (s *Source) Title() string { return s.title }

func (s *Source) Errors() <-chan error { return s.errs }

// Done is closed when playback ends. It never closes while looping.
func (s *Source) Done() <-chan struct{} { return s.done }

func (s *Source) finish() {
	s.once.Do(func() { close(s.done) })
}

// pipeline builds the chain handed to the speaker: optional loop, volume,
// then the tap.
func (s *Source) pipeline(h capture.Handler) (beep.Streamer, error) {
	var st beep.Streamer = s.stream
	if s.cfg.Loop {
		looped, err := beep.Loop2(s.stream)
		if err != nil {
			return nil, fmt.Errorf("looping %s: %w", s.name, err)
		}
		st = looped
	}
	if s.cfg.Volume != 0 {
		st = &effects.Volume{Streamer: st, Base: 2, Volume: s.cfg.Volume}
	}

	t := newTap(st, h, s.format.SampleRate.N(time.Second/blocksPerSecond))
	t.onErr = func(err error) {
		capture.Report(s.errs, fmt.Errorf("%w: %s: %v", capture.ErrStreamRuntime, s.name, err))
	}
	return beep.Seq(t, beep.Callback(s.finish)), nil
}

// Start opens the speaker at the file's sample rate and begins playback.
// h is called from the speaker goroutine.
func (s *Source) Start(h capture.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return fmt.Errorf("file %s already started", s.name)
	}

	st, err := s.pipeline(h)
	if err != nil {
		return err
	}
	if err := speaker.Init(s.format.SampleRate, s.format.SampleRate.N(time.Second/blocksPerSecond)); err != nil {
		return fmt.Errorf("%w: speaker init: %v", capture.ErrDeviceUnavailable, err)
	}
	speaker.Play(st)
	s.started = true

	s.log.Info("playback started", "loop", s.cfg.Loop, "volume", s.cfg.Volume)
	return nil
}

// Close stops playback and releases the decoder.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.started {
		speaker.Clear()
		speaker.Close()
	}
	err := s.stream.Close()
	close(s.errs)

	s.log.Info("playback stopped")
	return err
}
