// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used throughout connd.
// It wraps log/slog behind the small call-site surface the rest of the
// tree already expects (WithComponent, WithError, WithFields, leveled
// key-value logging) and adds an optional remote syslog sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Level mirrors slog.Level under names that read naturally at call sites.
type Level int

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// Config configures a Logger.
type Config struct {
	Output io.Writer
	Level  Level
	JSON   bool
	Syslog SyslogConfig
}

// DefaultConfig returns connd's baseline logging configuration: info level,
// text output to stderr, syslog forwarding disabled.
func DefaultConfig() Config {
	return Config{
		Output: os.Stderr,
		Level:  LevelInfo,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger is the structured logger handed to every component.
type Logger struct {
	base      *slog.Logger
	component string
	syslog    io.WriteCloser
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.Level(cfg.Level)}
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := &Logger{base: slog.New(handler)}

	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			l.syslog = w
		}
	}
	return l
}

// WithComponent returns a derived logger tagging every record with a
// component name, e.g. logging.New(cfg).WithComponent("firewall").
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		base:      l.base.With("component", name),
		component: name,
		syslog:    l.syslog,
	}
}

// WithError returns a derived logger carrying an "error" field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{base: l.base.With("error", err.Error()), component: l.component, syslog: l.syslog}
}

// WithFields returns a derived logger carrying the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{base: l.base.With(args...), component: l.component, syslog: l.syslog}
}

func (l *Logger) log(level slog.Level, msg string, kv ...any) {
	l.base.Log(context.Background(), level, msg, kv...)
	if l.syslog != nil {
		line := msg
		if l.component != "" {
			line = fmt.Sprintf("[%s] %s", l.component, msg)
		}
		_, _ = io.WriteString(l.syslog, line+"\n")
	}
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(slog.LevelDebug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(slog.LevelInfo, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(slog.LevelWarn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.log(slog.LevelError, msg, kv...) }

var (
	defaultMu  sync.RWMutex
	defaultLog atomic.Pointer[Logger]
)

func init() {
	defaultLog.Store(New(DefaultConfig()))
}

// SetDefault installs l as the package-level default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLog.Store(l)
}

// Default returns the current package-level logger.
func Default() *Logger {
	return defaultLog.Load()
}

// WithComponent tags the default logger with a component name.
func WithComponent(name string) *Logger { return Default().WithComponent(name) }

func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
