package db

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Compile-time interface checks.
var (
	_ Driver = (*BoltDriver)(nil)
	_ Handle = (*boltHandle)(nil)
)

// Bolt is the default driver: a single-file, memory-mapped bbolt store.
var Bolt = &BoltDriver{Timeout: time.Second}

// boltBucket holds every key of the store.
var boltBucket = []byte(DefaultBucket)

// DefaultBucket is the bbolt bucket used for all keys.
const DefaultBucket = "default"

// BoltDriver opens bbolt stores. The backing store is a single file; the
// engine takes an exclusive flock for read-write handles and a shared one
// for read-only handles.
type BoltDriver struct {
	// Timeout bounds how long Open waits for the file lock. Zero waits
	// forever.
	Timeout time.Duration
}

func (b *BoltDriver) Name() string { return "bolt" }

func (b *BoltDriver) Create(path string) error {
	return createFile(path, FileMode)
}

// Open maps cfg.Size to the initial mmap size so the store can grow up to
// that capacity without remapping.
func (b *BoltDriver) Open(path string, cfg OpenConfig) (Handle, error) {
	readOnly := cfg.ReadOnly()

	bdb, err := bolt.Open(path, cfg.Perm, &bolt.Options{
		Timeout:         b.Timeout,
		ReadOnly:        readOnly,
		InitialMmapSize: mmapSize(cfg.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("db: bolt open %s: %w", path, err)
	}

	if !readOnly {
		if err := bdb.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(boltBucket)
			return err
		}); err != nil {
			_ = bdb.Close()
			return nil, fmt.Errorf("db: bolt create bucket: %w", err)
		}
	}

	if err := writeLockFile(path, cfg.Perm); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &boltHandle{db: bdb, readOnly: readOnly}, nil
}

func (b *BoltDriver) Remove(path string) error {
	return os.Remove(path)
}

func mmapSize(size int64) int {
	switch {
	case size <= 0:
		return 0
	case size > math.MaxInt:
		return math.MaxInt
	default:
		return int(size)
	}
}

// ---------------------------------------------------------------------------
// Handle implementation
// ---------------------------------------------------------------------------

type boltHandle struct {
	db       *bolt.DB
	readOnly bool
}

func (h *boltHandle) Replace(key, value []byte) error {
	if h.readOnly {
		return ErrReadOnly
	}
	err := h.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bkt.Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("db: bolt replace: %w", err)
	}
	return nil
}

func (h *boltHandle) Fetch(key []byte) ([]byte, error) {
	var out []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		v, ok := seek(tx, key)
		if !ok {
			return ErrKeyNotFound
		}
		// Copy: v is only valid for the life of the transaction.
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("db: bolt fetch: %w", err)
	}
	return out, nil
}

func (h *boltHandle) Exists(key []byte) (bool, error) {
	var found bool
	err := h.db.View(func(tx *bolt.Tx) error {
		_, found = seek(tx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("db: bolt exists: %w", err)
	}
	return found, nil
}

func (h *boltHandle) Delete(key []byte) error {
	if h.readOnly {
		return ErrReadOnly
	}
	err := h.db.Update(func(tx *bolt.Tx) error {
		if _, ok := seek(tx, key); !ok {
			return ErrKeyNotFound
		}
		return tx.Bucket(boltBucket).Delete(key)
	})
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return err
		}
		return fmt.Errorf("db: bolt delete: %w", err)
	}
	return nil
}

func (h *boltHandle) Sync() error {
	if h.readOnly {
		return nil
	}
	if err := h.db.Sync(); err != nil {
		return fmt.Errorf("db: bolt sync: %w", err)
	}
	return nil
}

func (h *boltHandle) Close() error {
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("db: bolt close: %w", err)
	}
	return nil
}

// seek looks key up with a cursor so that empty values are told apart from
// missing keys.
func seek(tx *bolt.Tx, key []byte) ([]byte, bool) {
	bkt := tx.Bucket(boltBucket)
	if bkt == nil {
		return nil, false
	}
	k, v := bkt.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}
