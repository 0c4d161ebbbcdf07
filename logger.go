// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// MaxLogValueLength limits the length of a single logged value. Longer values
// are truncated.
const MaxLogValueLength = 1024

// Logger is the pluggable logging interface used by the client.
//
// Implementations receive structured key-value pairs. Two implementations
// ship with the package:
//   - DefaultLogger: std log output with a level threshold
//   - NoOpLogger: discards everything (default)
//
// Example slog adapter:
//
//	type SlogAdapter struct{ l *slog.Logger }
//
//	func (s *SlogAdapter) Debug(ctx context.Context, msg string, kv ...any) {
//	    s.l.DebugContext(ctx, msg, kv...)
//	}
//	// ... Info, Warn, Error
//
//	client, _ := gns3.NewClient("https://gns3.lab:3080",
//	    gns3.WithLogger(&SlogAdapter{l: slog.Default()}))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel represents the severity threshold for logging
type LogLevel int

const (
	// LogLevelDebug enables all log levels
	LogLevelDebug LogLevel = iota

	// LogLevelInfo enables Info, Warn, and Error logs
	LogLevelInfo

	// LogLevelWarn enables Warn and Error logs
	LogLevelWarn

	// LogLevelError enables only Error logs
	LogLevelError

	// LogLevelNone disables all logging
	LogLevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	if l >= LogLevelDebug && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("UNKNOWN(%d)", l)
}

// ParseLogLevel converts a case-insensitive level name into a LogLevel.
// Unknown names map to LogLevelInfo.
func ParseLogLevel(name string) LogLevel {
	for i, n := range levelNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return LogLevel(i)
		}
	}
	return LogLevelInfo
}

// DefaultLogger writes "[LEVEL] message key=value ..." lines through the
// standard log package.
type DefaultLogger struct {
	level  LogLevel
	output *log.Logger
}

// NewDefaultLogger creates a DefaultLogger with the specified log level
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// NewDefaultLoggerTo creates a DefaultLogger writing to a dedicated log.Logger
// instead of the package-level standard logger.
func NewDefaultLoggerTo(level LogLevel, out *log.Logger) *DefaultLogger {
	return &DefaultLogger{level: level, output: out}
}

// Debug logs a debug message with structured key-value pairs
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with structured key-value pairs
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with structured key-value pairs
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues...)
}

func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues ...any) {
	if l.level > level || l.level == LogLevelNone {
		return
	}

	var b strings.Builder
	b.Grow(len(msg) + 10 + len(keysAndValues)*25)
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteString(" ")
		b.WriteString(sanitizeLogValue(keysAndValues[i]))
		b.WriteString("=")
		if i+1 < len(keysAndValues) {
			b.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}

	if l.output != nil {
		l.output.Println(b.String())
		return
	}
	log.Println(b.String())
}

// sanitizeLogValue renders a value for a single log line. Control characters
// that could forge extra log entries are neutralised, zero-width and
// bidi-override runes are dropped and overly long values are truncated.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var b strings.Builder
	b.Grow(len(str))

	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size

		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteByte('.')
		case r == '\n' || r == '\r' || r == '\t' || r == 0x0C:
			b.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
			// zero-width, dropped
		case r == 0x202E:
			b.WriteByte(' ')
		case r < 32 || r == 127:
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// NoOpLogger discards all log messages. It is the client default.
type NoOpLogger struct{}

// Debug discards the log message
func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}

// Info discards the log message
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any) {}

// Warn discards the log message
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any) {}

// Error discards the log message
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
