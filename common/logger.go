package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards all log records. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by every package in this module. By default nothing is logged.
// Passing nil restores the silent default. Safe for concurrent use.
//
// Log levels used:
//   - slog.LevelDebug: tile phase transitions, pipeline registration, bind details
//   - slog.LevelInfo: adapter selection, config reloads, batch summaries
//   - slog.LevelWarn: tile failures inside batch renders, shader validation problems
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current module logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
