// Package logs builds the process logger: zerolog on a rotating file plus an
// optional console writer.
package logs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// File is the log file path; empty disables file logging.
	File       string
	Level      string
	Debug      bool
	Console    bool
	MaxSizeMB  int
	MaxBackups int

	// ConsoleOut defaults to os.Stderr.
	ConsoleOut io.Writer
}

// New creates the logger and installs it as the global zerolog logger. The
// returned closer flushes and closes the log file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
			return zerolog.Nop(), closer, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	if opts.Console || len(writers) == 0 {
		out := opts.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).
		Level(ParseLevel(opts.Level, opts.Debug)).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = logger

	return logger, closer, nil
}

// ParseLevel maps a configured level name to a zerolog level. debug forces
// DebugLevel; unknown names fall back to InfoLevel.
func ParseLevel(name string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
