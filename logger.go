package tablecodec

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is the diagnostic side channel. Provide an adapter around your logging stack
// (see log/logrus, log/zap, log/slog). If Logger is nil in Options, messages go to
// slog.Default(); pass NopLogger to disable logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// defaultLogger resolves slog.Default() on every call so slog.SetDefault
// takes effect for tables that already exist.
type defaultLogger struct{}

func (defaultLogger) Debug(msg string, f Fields) { logDefault(slog.LevelDebug, msg, f) }
func (defaultLogger) Info(msg string, f Fields)  { logDefault(slog.LevelInfo, msg, f) }
func (defaultLogger) Warn(msg string, f Fields)  { logDefault(slog.LevelWarn, msg, f) }
func (defaultLogger) Error(msg string, f Fields) { logDefault(slog.LevelError, msg, f) }

func logDefault(lvl slog.Level, msg string, f Fields) {
	l := slog.Default()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	attrs := make([]slog.Attr, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		attrs = append(attrs, slog.Any(k, f[k]))
	}
	l.LogAttrs(ctx, lvl, msg, attrs...)
}
