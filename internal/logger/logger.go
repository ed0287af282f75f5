// Package logger provides the structured logger injected into every server
// component. It is a thin interface over zerolog so tests can swap in a
// no-op or buffer-backed implementation.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger writes structured entries at four levels. Derived loggers created
// with With carry their fields on every subsequent entry.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Zerolog() zerolog.Logger
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New builds a Logger writing to w. The service name and a timestamp are
// attached to every entry; entries below level are dropped. Format "console"
// switches to zerolog's human readable writer.
func New(w io.Writer, service string, level zerolog.Level, format string) Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Str("service", service).Timestamp().Logger().Level(level)
	return &zerologLogger{logger: l}
}

// FromZerolog wraps an already configured zerolog.Logger.
func FromZerolog(l zerolog.Logger) Logger {
	return &zerologLogger{logger: l}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{logger: z.logger.With().Fields(toMap(fields)).Logger()}
}

func (z *zerologLogger) Zerolog() zerolog.Logger {
	return z.logger
}

func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}
