// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/x/explorer"

	"quickScope/internal/capture"
	"quickScope/internal/capture/file"
	"quickScope/internal/config"
	"quickScope/internal/display"
	"quickScope/internal/framebuffer"
)

type C = layout.Context

var errClosed = errors.New("visualizer closed")

// visualizer owns the wiring between the audio source, the frame buffer and
// the window.
type visualizer struct {
	settings *config.Settings
	log      *slog.Logger
	fb       *framebuffer.FrameBuffer
	callback *capture.Callback
	loop     *display.Loop
	closeLog func() error

	mu     sync.Mutex
	source capture.Source
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

func newVisualizer(s *config.Settings, log *slog.Logger, fb *framebuffer.FrameBuffer, closeLog func() error) *visualizer {
	return &visualizer{
		settings: s,
		log:      log,
		fb:       fb,
		callback: capture.NewCallback(fb),
		loop:     display.NewLoop(fb),
		closeLog: closeLog,
		stop:     make(chan struct{}),
	}
}

// attach starts src against the capture callback and watches its errors.
func (v *visualizer) attach(src capture.Source) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return errClosed
	}
	if err := src.Start(v.callback); err != nil {
		return err
	}
	v.source = src

	v.wg.Add(1)
	go v.watch(src)
	return nil
}

func (v *visualizer) openFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}
	return v.openReader(f, filepath.Base(path))
}

func (v *visualizer) openReader(r io.ReadCloser, name string) error {
	src, err := file.Open(r, name, file.Config{
		Loop:   v.settings.Source.Loop,
		Volume: v.settings.Source.Volume,
	}, v.log)
	if err != nil {
		return err
	}
	if err := v.attach(src); err != nil {
		_ = src.Close()
		return err
	}
	return nil
}

// watch logs stream errors and callback statistics. The callback itself
// never logs because it runs on the audio thread.
func (v *visualizer) watch(src capture.Source) {
	defer v.wg.Done()

	var tick <-chan time.Time
	if v.settings.StatsInterval > 0 {
		t := time.NewTicker(v.settings.StatsInterval)
		defer t.Stop()
		tick = t.C
	}

	var done <-chan struct{}
	if d, ok := src.(interface{ Done() <-chan struct{} }); ok {
		done = d.Done()
	}

	errs := src.Errors()
	var last capture.Stats
	for {
		select {
		case <-v.stop:
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			v.log.Warn("audio stream error", "source", src.Name(), "error", err)
		case <-done:
			v.log.Info("playback finished, keeping last frame", "source", src.Name())
			done = nil
		case <-tick:
			cur := v.callback.Stats()
			d := cur.Sub(last)
			last = cur
			v.log.Debug("capture stats",
				"rendered", d.Rendered,
				"skipped", d.Skipped,
				"panics", d.Panics,
				"presented", v.loop.Frames())
			if d.Skipped+d.Panics > 0 && d.LastErr != nil {
				v.log.Warn("audio blocks not rendered",
					"count", d.Skipped+d.Panics,
					"last_error", d.LastErr)
			}
		}
	}
}

// runWindow drives the display until the window closes and returns the
// process exit code.
func (v *visualizer) runWindow() int {
	ws := v.settings.Window
	size := app.Size(unit.Dp(ws.Width), unit.Dp(ws.Height))

	w := new(app.Window)
	w.Option(app.Title(v.title()), size,
		app.MinSize(unit.Dp(ws.Width), unit.Dp(ws.Height)),
		app.MaxSize(unit.Dp(ws.Width), unit.Dp(ws.Height)))

	var picker *explorer.Explorer
	if v.settings.Source.Kind == config.SourceFile && v.settings.Source.File == "" {
		picker = explorer.NewExplorer(w)
		go v.chooseFile(w, picker)
	}

	err := v.eventLoop(w, picker)
	code := 0
	if err != nil {
		v.log.Error("display stopped", "error", err)
		code = 1
	}
	v.shutdown()
	return code
}

func (v *visualizer) eventLoop(w *app.Window, picker *explorer.Explorer) error {
	var ops op.Ops
	for {
		e := w.Event()
		if picker != nil {
			picker.ListenEvents(e)
		}
		switch e := e.(type) {
		case app.DestroyEvent:
			if e.Err != nil {
				return fmt.Errorf("%w: %v", display.ErrPresentation, e.Err)
			}
			return nil
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			if cancelPressed(gtx) {
				w.Perform(system.ActionClose)
			}
			err := v.loop.Frame(display.PresenterFunc(func(frame framebuffer.Canvas) error {
				return present(gtx, frame)
			}))
			if err != nil {
				return err
			}
			// Redraw on the next vsync whether or not audio arrived.
			gtx.Execute(op.InvalidateCmd{})
			e.Frame(gtx.Ops)
		}
	}
}

// cancelPressed drains Escape presses for this frame.
func cancelPressed(gtx C) bool {
	pressed := false
	for {
		ev, ok := gtx.Event(key.Filter{Name: key.NameEscape})
		if !ok {
			return pressed
		}
		if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
			pressed = true
		}
	}
}

// present stretches the frame over the window. A fresh image is built per
// frame because gio may keep the pixels of an ImageOp until the next frame.
func present(gtx C, frame framebuffer.Canvas) error {
	if !frame.Valid() {
		return fmt.Errorf("frame %dx%d holds %d pixels", frame.Width, frame.Height, len(frame.Pix))
	}
	img := paint.NewImageOp(display.ToRGBA(frame, nil))
	img.Filter = paint.FilterNearest
	widget.Image{Src: img, Fit: widget.Fill}.Layout(gtx)
	return nil
}

// chooseFile asks for an audio file and starts it. Declining the dialog
// closes the window since there is nothing else to show.
func (v *visualizer) chooseFile(w *app.Window, picker *explorer.Explorer) {
	rc, err := picker.ChooseFile(".mp3", ".wav", ".flac", ".ogg")
	if err != nil {
		if errors.Is(err, explorer.ErrUserDecline) {
			v.log.Info("no audio file chosen")
		} else {
			v.log.Error("file dialog failed", "error", err)
		}
		w.Perform(system.ActionClose)
		return
	}

	name := "selected file"
	if f, ok := rc.(*os.File); ok {
		name = filepath.Base(f.Name())
	}
	if err := v.openReader(rc, name); err != nil {
		v.log.Error("opening chosen file", "file", name, "error", err)
		w.Perform(system.ActionClose)
		return
	}

	w.Option(app.Title(v.title()))
}

// title names the playing track when the source is a file.
func (v *visualizer) title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if src, ok := v.source.(*file.Source); ok {
		return v.settings.Window.Title + " - " + src.Title()
	}
	return v.settings.Window.Title
}

// shutdown stops the audio stream after the display loop is gone.
func (v *visualizer) shutdown() {
	v.mu.Lock()
	v.closed = true
	src := v.source
	v.mu.Unlock()

	close(v.stop)
	v.wg.Wait()

	if src != nil {
		if err := src.Close(); err != nil {
			v.log.Warn("closing audio source", "source", src.Name(), "error", err)
		}
	}

	s := v.callback.Stats()
	v.log.Info("shutdown",
		"rendered", s.Rendered,
		"skipped", s.Skipped,
		"panics", s.Panics,
		"presented", v.loop.Frames())

	if err := v.closeLog(); err != nil {
		fmt.Fprintln(os.Stderr, "quickscope: closing log:", err)
	}
}
