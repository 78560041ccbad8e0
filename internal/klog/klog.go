// Package klog is a small levelled logger that writes whole lines to
// line-oriented sinks such as a UART, a host console or a terminal view.
package klog

import (
	"fmt"
	"strings"
	"sync"
)

// Level selects which messages are emitted.
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// ParseLevel parses a level name as printed by Level.String.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("klog: unknown level %q", s)
}

// Sink receives formatted log lines without trailing newlines.
type Sink interface {
	WriteLineString(s string)
}

type core struct {
	mu    sync.Mutex
	level Level
	sinks []Sink
}

// Logger fans each line out to every sink. A nil *Logger discards everything.
type Logger struct {
	c      *core
	prefix string
}

// New returns a logger at level writing to sinks.
func New(level Level, sinks ...Sink) *Logger {
	c := &core{level: level}
	for _, s := range sinks {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
	return &Logger{c: c}
}

// With returns a logger sharing level and sinks that prefixes every line
// with name.
func (l *Logger) With(name string) *Logger {
	if l == nil {
		return nil
	}
	p := name + ": "
	if l.prefix != "" {
		p = l.prefix + name + ": "
	}
	return &Logger{c: l.c, prefix: p}
}

// AddSink attaches another sink.
func (l *Logger) AddSink(s Sink) {
	if l == nil || s == nil {
		return
	}
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.sinks = append(l.c.sinks, s)
}

func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.level = level
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return level <= l.c.level && len(l.c.sinks) > 0
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "E ", format, args) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "W ", format, args) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "I ", format, args) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "D ", format, args) }

func (l *Logger) logf(level Level, tag, format string, args []any) {
	if !l.Enabled(level) {
		return
	}
	line := tag + l.prefix + fmt.Sprintf(format, args...)

	l.c.mu.Lock()
	sinks := l.c.sinks
	l.c.mu.Unlock()
	for _, s := range sinks {
		s.WriteLineString(line)
	}
}
