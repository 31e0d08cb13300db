// SPDX-License-Identifier: Unlicense OR MIT

// Package config loads quickScope settings from defaults, an optional YAML
// file, QUICKSCOPE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "QUICKSCOPE"
	fileName  = "quickscope"
)

const (
	SourceDevice = "device"
	SourceFile   = "file"

	ModeCapture  = "capture"
	ModeLoopback = "loopback"
)

var ErrInvalid = errors.New("invalid configuration")

type Settings struct {
	Window        Window        `mapstructure:"window"`
	Source        Source        `mapstructure:"source"`
	Log           Log           `mapstructure:"log"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// Window is the fixed canvas. It does not change after startup.
type Window struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

type Source struct {
	Kind         string  `mapstructure:"kind"`
	Device       string  `mapstructure:"device"`
	Mode         string  `mapstructure:"mode"`
	SampleRate   uint32  `mapstructure:"sample_rate"`
	BufferFrames uint32  `mapstructure:"buffer_frames"`
	File         string  `mapstructure:"file"`
	Loop         bool    `mapstructure:"loop"`
	Volume       float64 `mapstructure:"volume"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults registers every key so environment overrides are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("window.width", 540)
	v.SetDefault("window.height", 300)
	v.SetDefault("window.title", "Audio Waveform Display")

	v.SetDefault("source.kind", SourceDevice)
	v.SetDefault("source.device", "")
	v.SetDefault("source.mode", ModeCapture)
	v.SetDefault("source.sample_rate", 0)
	v.SetDefault("source.buffer_frames", 0)
	v.SetDefault("source.file", "")
	v.SetDefault("source.loop", false)
	v.SetDefault("source.volume", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("stats_interval", 5*time.Second)
}

// Load reads settings into v. An empty path searches the working directory
// and the user config directory; a missing file there is not an error.
func Load(v *viper.Viper, path string) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, fileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	normalize(&s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func normalize(s *Settings) {
	s.Source.Kind = strings.ToLower(strings.TrimSpace(s.Source.Kind))
	s.Source.Mode = strings.ToLower(strings.TrimSpace(s.Source.Mode))
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	// A file path on its own selects the file source.
	if s.Source.File != "" && s.Source.Kind == SourceDevice && s.Source.Device == "" {
		s.Source.Kind = SourceFile
	}
}

func (s *Settings) Validate() error {
	var errs []error
	bad := func(key, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalid, key, fmt.Sprintf(format, args...)))
	}

	if s.Window.Width < 2 {
		bad("window.width", "must be at least 2, got %d", s.Window.Width)
	}
	if s.Window.Height < 1 {
		bad("window.height", "must be at least 1, got %d", s.Window.Height)
	}

	switch s.Source.Kind {
	case SourceDevice, SourceFile:
	default:
		bad("source.kind", "want %q or %q, got %q", SourceDevice, SourceFile, s.Source.Kind)
	}
	switch s.Source.Mode {
	case ModeCapture, ModeLoopback:
	default:
		bad("source.mode", "want %q or %q, got %q", ModeCapture, ModeLoopback, s.Source.Mode)
	}
	if s.Source.Volume < -10 || s.Source.Volume > 2 {
		bad("source.volume", "must be within [-10, 2], got %g", s.Source.Volume)
	}

	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("log.level", "unknown level %q", s.Log.Level)
	}
	if s.StatsInterval < 0 {
		bad("stats_interval", "must not be negative")
	}

	return errors.Join(errs...)
}
