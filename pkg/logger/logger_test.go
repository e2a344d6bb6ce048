package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T, level zapcore.Level) (Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	return New(zap.New(core)), logs
}

func TestKeyValueFields(t *testing.T) {
	log, logs := observed(t, zapcore.DebugLevel)

	log.Info("database opened", "path", "/tmp/store.db", "flag", "wd")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "database opened", entries[0].Message)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	require.Equal(t, "/tmp/store.db", fields["path"])
	require.Equal(t, "wd", fields["flag"])
}

func TestWithAddsFieldsToChild(t *testing.T) {
	log, logs := observed(t, zapcore.DebugLevel)

	child := log.With("component", "db")
	child.Warn("put failed", "key", "a")
	log.Warn("unscoped")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "db", entries[0].ContextMap()["component"])
	require.Equal(t, "a", entries[0].ContextMap()["key"])
	require.NotContains(t, entries[1].ContextMap(), "component")
}

func TestLevelFiltering(t *testing.T) {
	log, logs := observed(t, zapcore.WarnLevel)

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	require.Equal(t, 2, logs.Len())
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	log, logs := observed(t, zapcore.DebugLevel)
	SetDefault(log)
	Default().Info("hello")
	require.Equal(t, 1, logs.Len())

	SetDefault(nil)
	require.NotNil(t, Default())
	Default().Info("discarded")
	require.Equal(t, 1, logs.Len())
}

type recordingLogger struct {
	errors []string
}

func (r *recordingLogger) Debug(string, ...any)       {}
func (r *recordingLogger) Info(string, ...any)        {}
func (r *recordingLogger) Warn(string, ...any)        {}
func (r *recordingLogger) Error(msg string, _ ...any) { r.errors = append(r.errors, msg) }
func (r *recordingLogger) With(...any) Logger         { return r }
func (r *recordingLogger) Sync() error                { return nil }

func TestFatalOnForeignLoggerExits(t *testing.T) {
	prevLog, prevExit := Default(), exit
	t.Cleanup(func() {
		SetDefault(prevLog)
		exit = prevExit
	})

	rec := &recordingLogger{}
	SetDefault(rec)

	code := -1
	exit = func(c int) { code = c }

	Fatal("boom", "error", "x")
	require.Equal(t, 1, code)
	require.Equal(t, []string{"boom"}, rec.errors)
}
