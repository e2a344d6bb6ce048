package db

import (
	"bytes"
	"errors"
	"testing"

	"github.com/beyondbrewing/brewery-kv/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const mockPath = "/virtual/store.db"

func openMock(t *testing.T, drv *MockDriver, opts ...Option) *Database {
	t.Helper()

	base := []Option{
		WithMode(ModeWrite),
		WithDriver(drv),
		WithLogger(logger.Nop()),
	}
	d, err := New(mockPath, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestModeFlag(t *testing.T) {
	require.Equal(t, ModeRead, ModeWrite)

	tests := []struct {
		name string
		mode Mode
		want string
	}{
		{"read", ModeRead, FlagWrite},
		{"write", ModeWrite, FlagWrite},
		{"zero", Mode(0), FlagRead},
		{"two", Mode(2), FlagRead},
		{"negative", Mode(-1), FlagRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.mode.Flag())
		})
	}
}

func TestDriverByName(t *testing.T) {
	d, err := DriverByName("")
	require.NoError(t, err)
	require.Equal(t, "bolt", d.Name())

	d, err = DriverByName("pebble")
	require.NoError(t, err)
	require.Equal(t, "pebble", d.Name())

	_, err = DriverByName("lmdb")
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNewNilHandle(t *testing.T) {
	drv := NewMockDriver()
	drv.NilHandle = true

	d, err := New(mockPath, WithDriver(drv), WithLogger(logger.Nop()))
	require.Nil(t, d)
	require.ErrorIs(t, err, ErrCouldNotOpenDatabase)
	require.ErrorIs(t, err, ErrNilHandle)
}

func TestNewWrapsDriverErrors(t *testing.T) {
	createErr := errors.New("no space")
	openErr := errors.New("bad magic")

	drv := NewMockDriver()
	drv.CreateErr = createErr
	_, err := New(mockPath, WithDriver(drv), WithLogger(logger.Nop()))
	require.ErrorIs(t, err, ErrCouldNotOpenDatabase)
	require.ErrorIs(t, err, createErr)

	drv = NewMockDriver()
	drv.OpenErr = openErr
	_, err = New(mockPath, WithDriver(drv), WithLogger(logger.Nop()))
	require.ErrorIs(t, err, ErrCouldNotOpenDatabase)
	require.ErrorIs(t, err, openErr)
	require.Equal(t, 0, drv.Opens())
}

func TestPutManyAttemptsEveryEntry(t *testing.T) {
	drv := NewMockDriver()
	d := openMock(t, drv)

	drv.ReplaceFunc = func(key, _ []byte) error {
		if bytes.Equal(key, []byte("bad")) {
			return errors.New("rejected")
		}
		return nil
	}

	// Failure first, in the middle and last all poison the result.
	for _, entries := range [][]Entry{
		{{Key: "bad"}, {Key: "x1"}, {Key: "x2"}},
		{{Key: "y1"}, {Key: "bad"}, {Key: "y2"}},
		{{Key: "z1"}, {Key: "z2"}, {Key: "bad"}},
	} {
		before := drv.Writes(mockPath)
		require.False(t, d.PutMany(entries...))
		require.Equal(t, before+3, drv.Writes(mockPath))
	}

	for _, k := range []string{"x1", "x2", "y1", "y2", "z1", "z2"} {
		require.True(t, d.Has(k), k)
	}
	require.False(t, d.Has("bad"))

	require.True(t, d.PutMany(Entry{Key: "single", Value: []byte("1")}))
}

func TestPrefixReachesEngine(t *testing.T) {
	drv := NewMockDriver()
	d := openMock(t, drv, WithPrefix("tenant/"))

	var seen []string
	drv.ReplaceFunc = func(key, _ []byte) error {
		seen = append(seen, string(key))
		return nil
	}

	require.True(t, d.Put("k", []byte("v")))
	require.Equal(t, []string{"tenant/k"}, seen)
}

func TestFlushRemovesData(t *testing.T) {
	drv := NewMockDriver()
	d := openMock(t, drv)

	require.True(t, d.Put("a", []byte("1")))
	require.Equal(t, 1, drv.Len(mockPath))

	ok, err := d.Flush()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, drv.Len(mockPath))
	require.Equal(t, 2, drv.Opens())
	require.Nil(t, d.Get("a", nil))
}

func TestFlushSyncFailureReturnsFalse(t *testing.T) {
	drv := NewMockDriver()
	d := openMock(t, drv)
	require.True(t, d.Put("a", []byte("1")))

	drv.SyncErr = errors.New("fsync: input/output error")

	ok, err := d.Flush()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, d.IsOpen())

	// Closed now: a further flush fails at the close step.
	ok, err = d.Flush()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, drv.Opens())
}

func TestFlushReopenFailurePropagates(t *testing.T) {
	drv := NewMockDriver()
	d := openMock(t, drv)

	drv.OpenErr = errors.New("engine refused")

	ok, err := d.Flush()
	require.False(t, ok)
	require.ErrorIs(t, err, ErrCouldNotOpenDatabase)
	require.False(t, d.IsOpen())
	require.NoError(t, d.Close())
}

func TestCloseRunsEveryStep(t *testing.T) {
	syncErr := errors.New("sync failed")
	closeErr := errors.New("close failed")

	drv := NewMockDriver()
	d := openMock(t, drv)
	drv.SyncErr = syncErr
	drv.CloseErr = closeErr

	err := d.Close()
	require.ErrorIs(t, err, syncErr)
	require.ErrorIs(t, err, closeErr)
	require.False(t, d.IsOpen())

	require.NoError(t, d.Close())
}

func TestBooleanFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	drv := NewMockDriver()
	d := openMock(t, drv, WithLogger(logger.New(zap.New(core))))
	drv.ReplaceFunc = func(_, _ []byte) error { return errors.New("full") }

	require.False(t, d.Put("k", []byte("v")))

	entries := logs.FilterMessage("put failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "db", fields["component"])
	require.Equal(t, "mock", fields["driver"])
	require.Equal(t, "k", fields["key"])

	// Missing keys are not failures.
	require.Nil(t, d.Get("absent", nil))
	require.False(t, d.Forget("absent"))
	require.Equal(t, 1, logs.Len())
}

func TestReadOnlyMockRejectsWrites(t *testing.T) {
	drv := NewMockDriver()
	w := openMock(t, drv)
	require.True(t, w.Put("k", []byte("v")))
	require.NoError(t, w.Close())

	r := openMock(t, drv, WithMode(Mode(0)))
	require.Equal(t, Mode(0), r.Mode())
	require.False(t, r.Put("k", []byte("w")))
	require.False(t, r.Forget("k"))
	require.Equal(t, []byte("v"), r.Get("k", nil))
}
