// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gioui.org/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickScope/internal/capture"
	"quickScope/internal/capture/device"
	"quickScope/internal/config"
	"quickScope/internal/framebuffer"
	"quickScope/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "quickscope:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var (
		cfgPath     string
		listDevices bool
	)

	cmd := &cobra.Command{
		Use:          "quickscope [audio file]",
		Short:        "Draw live audio as a waveform",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set("source.file", args[0])
				v.Set("source.kind", config.SourceFile)
			}
			settings, err := config.Load(v, cfgPath)
			if err != nil {
				return err
			}
			log, closeLog, err := logging.New(settings.Log)
			if err != nil {
				return err
			}
			if used := v.ConfigFileUsed(); used != "" {
				log.Debug("loaded config", "file", used)
			}

			if listDevices {
				err = printDevices(cmd.OutOrStdout(), settings.Source.Mode == config.ModeLoopback, log)
				_ = closeLog()
				return err
			}

			if err := run(settings, log, closeLog); err != nil {
				log.Error("startup failed", "error", err)
				_ = closeLog()
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "config file (default ./quickscope.yaml)")
	flags.BoolVar(&listDevices, "list-devices", false, "list audio devices and exit")
	flags.Int("width", 540, "canvas width in pixels")
	flags.Int("height", 300, "canvas height in pixels")
	flags.String("source", config.SourceDevice, "audio source: device or file")
	flags.StringP("device", "d", "", "capture device name or ID (default: system default)")
	flags.String("mode", config.ModeCapture, "device mode: capture or loopback")
	flags.Uint32("sample-rate", 0, "capture sample rate (0: device default)")
	flags.Uint32("buffer-frames", 0, "frames per capture callback (0: device default)")
	flags.String("file", "", "play and draw this audio file instead of a device")
	flags.Bool("loop", false, "loop the audio file")
	flags.Float64("volume", 0, "file playback volume as a power of two")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write logs to this rotated file")

	for key, name := range map[string]string{
		"window.width":         "width",
		"window.height":        "height",
		"source.kind":          "source",
		"source.device":        "device",
		"source.mode":          "mode",
		"source.sample_rate":   "sample-rate",
		"source.buffer_frames": "buffer-frames",
		"source.file":          "file",
		"source.loop":          "loop",
		"source.volume":        "volume",
		"log.level":            "log-level",
		"log.file":             "log-file",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}

	return cmd
}

// run opens the audio source, hands the window loop its own goroutine and
// gives the main goroutine to gio. It returns only on startup failure; after
// that the window goroutine ends the process.
func run(s *config.Settings, log *slog.Logger, closeLog func() error) error {
	fb, err := framebuffer.New(s.Window.Width, s.Window.Height)
	if err != nil {
		return err
	}

	vis := newVisualizer(s, log, fb, closeLog)

	switch {
	case s.Source.Kind == config.SourceDevice:
		src, err := device.Open(device.Config{
			Device:       s.Source.Device,
			Loopback:     s.Source.Mode == config.ModeLoopback,
			SampleRate:   s.Source.SampleRate,
			BufferFrames: s.Source.BufferFrames,
		}, log)
		if err != nil {
			return err
		}
		if err := vis.attach(src); err != nil {
			_ = src.Close()
			return err
		}
	case s.Source.File != "":
		if err := vis.openFile(s.Source.File); err != nil {
			return err
		}
	}
	// A file source without a path is chosen in the window.

	go func() {
		os.Exit(vis.runWindow())
	}()
	app.Main()
	return nil
}

func printDevices(w io.Writer, loopback bool, log *slog.Logger) error {
	devices, err := device.List(loopback, log)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no audio devices found", capture.ErrDeviceUnavailable)
	}
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %2d  %-40s  %s\n", mark, d.Index, d.Name, d.ID)
	}
	return nil
}
