package db

import (
	"fmt"
	"io/fs"
	"sync"
)

// Compile-time interface checks.
var (
	_ Driver = (*MockDriver)(nil)
	_ Handle = (*mockHandle)(nil)
)

// MockDriver is a fully functional, thread-safe, in-memory [Driver]. Stores
// are keyed by path and survive close and reopen until Remove. Nothing is
// written to disk, including the lock artifact.
//
// The exported fields inject failures into the matching operation. Set
// them before the operation runs; they are read under the driver lock.
//
//	drv := db.NewMockDriver()
//	drv.SyncErr = errors.New("disk gone")
type MockDriver struct {
	CreateErr error
	OpenErr   error
	NilHandle bool
	SyncErr   error
	CloseErr  error

	// ReplaceFunc, if set, runs before every write. A non-nil return fails
	// the write.
	ReplaceFunc func(key, value []byte) error

	mu     sync.Mutex
	stores map[string]map[string][]byte
	writes map[string]int
	opens  int
}

// NewMockDriver creates an empty MockDriver.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		stores: make(map[string]map[string][]byte),
		writes: make(map[string]int),
	}
}

func (m *MockDriver) Name() string { return "mock" }

func (m *MockDriver) Create(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.stores[path]; !ok {
		m.stores[path] = make(map[string][]byte)
	}
	return nil
}

func (m *MockDriver) Open(path string, cfg OpenConfig) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.NilHandle {
		return nil, nil
	}
	if _, ok := m.stores[path]; !ok {
		return nil, fmt.Errorf("db: mock store %q does not exist: %w", path, fs.ErrNotExist)
	}
	m.opens++
	return &mockHandle{driver: m, path: path, readOnly: cfg.ReadOnly()}, nil
}

func (m *MockDriver) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.stores, path)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// Len returns the number of keys stored at path, or -1 if no store exists.
func (m *MockDriver) Len(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[path]
	if !ok {
		return -1
	}
	return len(s)
}

// Writes returns how many Replace calls reached the store at path,
// including failed ones.
func (m *MockDriver) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[path]
}

// Opens returns how many handles have been opened.
func (m *MockDriver) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// ---------------------------------------------------------------------------
// Handle implementation
// ---------------------------------------------------------------------------

type mockHandle struct {
	driver   *MockDriver
	path     string
	readOnly bool
	closed   bool
}

// store returns the handle's backing map. The caller holds driver.mu.
func (h *mockHandle) store() (map[string][]byte, error) {
	if h.closed {
		return nil, ErrClosed
	}
	s, ok := h.driver.stores[h.path]
	if !ok {
		return nil, fmt.Errorf("db: mock store %q removed: %w", h.path, fs.ErrNotExist)
	}
	return s, nil
}

func (h *mockHandle) Replace(key, value []byte) error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	s, err := h.store()
	if err != nil {
		return err
	}
	h.driver.writes[h.path]++
	if h.readOnly {
		return ErrReadOnly
	}
	if fn := h.driver.ReplaceFunc; fn != nil {
		if err := fn(key, value); err != nil {
			return err
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	s[string(key)] = v
	return nil
}

func (h *mockHandle) Fetch(key []byte) ([]byte, error) {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	s, err := h.store()
	if err != nil {
		return nil, err
	}
	v, ok := s[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (h *mockHandle) Exists(key []byte) (bool, error) {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	s, err := h.store()
	if err != nil {
		return false, err
	}
	_, ok := s[string(key)]
	return ok, nil
}

func (h *mockHandle) Delete(key []byte) error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	s, err := h.store()
	if err != nil {
		return err
	}
	if h.readOnly {
		return ErrReadOnly
	}
	if _, ok := s[string(key)]; !ok {
		return ErrKeyNotFound
	}
	delete(s, string(key))
	return nil
}

func (h *mockHandle) Sync() error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	return h.driver.SyncErr
}

func (h *mockHandle) Close() error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	h.closed = true
	return h.driver.CloseErr
}
