// Package logging builds the process logger: JSON on stdout and, when a file
// is configured, a size-rotated copy on disk.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig contains log rotation settings.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options selects level and outputs. An empty File logs to Stdout only.
type Options struct {
	Level    string
	File     string
	Rotation RotationConfig
	Console  bool
	Stdout   io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger and a closer for the rotated file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var stdout io.Writer = os.Stdout
	if opts.Stdout != nil {
		stdout = opts.Stdout
	}
	if opts.Console {
		stdout = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.TimeOnly}
	}

	var closer io.Closer = nopCloser{}
	out := stdout
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.Rotation.MaxSizeMB,
			MaxBackups: opts.Rotation.MaxBackups,
			MaxAge:     opts.Rotation.MaxAgeDays,
			Compress:   opts.Rotation.Compress,
		}
		out = zerolog.MultiLevelWriter(stdout, file)
		closer = file
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if opts.File != "" {
		logger.Debug().
			Str("log_file", opts.File).
			Int("max_size_mb", opts.Rotation.MaxSizeMB).
			Int("max_backups", opts.Rotation.MaxBackups).
			Int("max_age_days", opts.Rotation.MaxAgeDays).
			Bool("compress", opts.Rotation.Compress).
			Msg("file logging enabled")
	}
	return logger, closer, nil
}

// ParseLevel accepts zerolog level names plus "warning"; empty means info.
func ParseLevel(raw string) (zerolog.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", raw)
	}
	return level, nil
}
