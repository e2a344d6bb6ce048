// Package logger provides the structured, key/value logger shared by every
// brewery-kv component. It is a thin layer over zap's SugaredLogger so that
// callers can log with alternating key/value pairs:
//
//	log := logger.Default().With("component", "db")
//	log.Info("database opened", "path", path)
//
// A process-wide default is kept for components that are not handed a
// logger explicitly. It starts out as a no-op logger; binaries install a
// real one with [SetDefault] and flush it with [SyncDefault] on exit.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the structured logging contract used throughout the module.
// kv is a flat list of alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)

	// With returns a child logger that always includes the given fields.
	With(kv ...any) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// Compile-time interface check.
var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	s *zap.SugaredLogger
}

// New wraps an existing zap logger.
func New(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{s: z.Sugar()}
}

// MustProduction returns a JSON logger at Info level. It panics if zap
// cannot build its production configuration.
func MustProduction() Logger {
	return New(zap.Must(zap.NewProduction()))
}

// MustDevelopment returns a human-readable logger at Debug level.
func MustDevelopment() Logger {
	return New(zap.Must(zap.NewDevelopment()))
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return New(zap.NewNop())
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.s.Sync() }

// fatal is only reachable through the package-level Fatal.
func (l *zapLogger) fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

// ---------------------------------------------------------------------------
// Process default
// ---------------------------------------------------------------------------

var (
	mu  sync.RWMutex
	std = Nop()
)

// Default returns the process-wide logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetDefault replaces the process-wide logger. A nil logger resets it to Nop.
func SetDefault(l Logger) {
	if l == nil {
		l = Nop()
	}
	mu.Lock()
	std = l
	mu.Unlock()
}

// SyncDefault flushes the process-wide logger. Errors are ignored; stderr
// and stdout commonly reject fsync.
func SyncDefault() {
	_ = Default().Sync()
}

// Fatal logs at Fatal level on the default logger and exits the process.
// Deferred functions do not run.
func Fatal(msg string, kv ...any) {
	l := Default()
	if z, ok := l.(*zapLogger); ok {
		z.fatal(msg, kv...)
		return
	}
	l.Error(msg, kv...)
	_ = l.Sync()
	exit(1)
}
