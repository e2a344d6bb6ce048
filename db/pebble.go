package db

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

// Compile-time interface checks.
var (
	_ Driver = (*PebbleDriver)(nil)
	_ Handle = (*pebbleHandle)(nil)
)

// PebbleDriver opens Pebble stores. The backing store is a directory; the
// engine keeps its own LOCK file inside it. Pebble does not pre-allocate,
// so the configured capacity is ignored.
type PebbleDriver struct {
	cfg *PebbleConfig
}

// NewPebbleDriver returns a driver with the given options applied over
// DefaultPebbleConfig.
func NewPebbleDriver(opts ...PebbleOption) *PebbleDriver {
	cfg := DefaultPebbleConfig()
	for _, o := range opts {
		o(cfg)
	}
	return &PebbleDriver{cfg: cfg}
}

func (p *PebbleDriver) Name() string { return "pebble" }

func (p *PebbleDriver) Create(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("db: create %s: %w", path, err)
	}
	return nil
}

func (p *PebbleDriver) Open(path string, cfg OpenConfig) (Handle, error) {
	c := p.cfg
	readOnly := cfg.ReadOnly()

	cache := pebble.NewCache(c.CacheSize)
	defer cache.Unref()

	pOpts := &pebble.Options{
		Cache:                    cache,
		MemTableSize:             c.MemTableSize,
		MaxOpenFiles:             c.MaxOpenFiles,
		MaxConcurrentCompactions: func() int { return c.MaxConcurrentCompactions },
		L0CompactionThreshold:    c.L0CompactionThreshold,
		L0StopWritesThreshold:    c.L0StopWritesThreshold,
		LBaseMaxBytes:            c.LBaseMaxBytes,
		WALDir:                   c.WALDir,
		ReadOnly:                 readOnly,
	}

	pdb, err := pebble.Open(path, pOpts)
	if err != nil {
		return nil, fmt.Errorf("db: pebble open %s: %w", path, err)
	}

	if err := writeLockFile(path, cfg.Perm); err != nil {
		_ = pdb.Close()
		return nil, err
	}

	writeOpts := pebble.NoSync
	if c.SyncWrites {
		writeOpts = pebble.Sync
	}

	return &pebbleHandle{
		db:        pdb,
		writeOpts: writeOpts,
		readOnly:  readOnly,
	}, nil
}

// Remove deletes the store directory and everything in it.
func (p *PebbleDriver) Remove(path string) error {
	return os.RemoveAll(path)
}

// ---------------------------------------------------------------------------
// Handle implementation
// ---------------------------------------------------------------------------

type pebbleHandle struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	readOnly  bool
}

func (h *pebbleHandle) Replace(key, value []byte) error {
	if h.readOnly {
		return ErrReadOnly
	}
	if err := h.db.Set(key, value, h.writeOpts); err != nil {
		return fmt.Errorf("db: pebble replace: %w", err)
	}
	return nil
}

func (h *pebbleHandle) Fetch(key []byte) ([]byte, error) {
	val, closer, err := h.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("db: pebble fetch: %w", err)
	}
	defer closer.Close()

	// Copy: the returned slice is only valid until closer.Close().
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (h *pebbleHandle) Exists(key []byte) (bool, error) {
	_, closer, err := h.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("db: pebble exists: %w", err)
	}
	closer.Close()
	return true, nil
}

func (h *pebbleHandle) Delete(key []byte) error {
	if h.readOnly {
		return ErrReadOnly
	}
	ok, err := h.Exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}
	if err := h.db.Delete(key, h.writeOpts); err != nil {
		return fmt.Errorf("db: pebble delete: %w", err)
	}
	return nil
}

// Sync flushes the memtable to sstables.
func (h *pebbleHandle) Sync() error {
	if h.readOnly {
		return nil
	}
	if err := h.db.Flush(); err != nil {
		return fmt.Errorf("db: pebble sync: %w", err)
	}
	return nil
}

func (h *pebbleHandle) Close() error {
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("db: pebble close: %w", err)
	}
	return nil
}
