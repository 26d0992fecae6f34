// Package log provides structured logging for planshift.
//
// It is a thin façade over log/slog: callers configure a level and an
// output format once and pass *Logger values around. The converter core
// never logs; logging belongs to the drivers (CLI, watcher, HTTP server).
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Level represents a logging severity level.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disable logging entirely
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level string.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "OFF", "NONE":
		return LevelOff, nil
	default:
		return LevelInfo, errors.Newf("unknown log level %q", s)
	}
}

// slogLevel maps a Level onto the slog scale. LevelOff maps above any
// level slog will ever emit.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.Level(127)
	}
}

// Format selects the output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat parses a format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, errors.Newf("unknown log format %q", s)
	}
}

// Config controls logger construction.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// Logger is a leveled, structured logger.
type Logger struct {
	s     *slog.Logger
	level Level
}

// New creates a logger from the given configuration.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	var h slog.Handler
	switch cfg.Format {
	case FormatJSON:
		h = slog.NewJSONHandler(out, opts)
	default:
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{s: slog.New(h), level: cfg.Level}
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide logger, created on first use with
// info level and text output on stderr.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(Config{Level: LevelInfo})
	})
	return defaultLogger
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(Config{Level: LevelOff, Output: io.Discard})
}

// Debug logs at debug level. Args are alternating key/value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.s.Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.s.Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.s.Error(msg, args...) }

// Enabled reports whether the logger emits at the given level.
func (l *Logger) Enabled(level Level) bool { return level >= l.level }

// With returns a logger that includes the given key/value pairs in every
// record it emits.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.s.With(args...), level: l.level}
}

// Err returns an attribute for an error value, tolerating nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
