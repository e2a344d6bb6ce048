package db

import (
	"errors"
	"io/fs"

	"github.com/beyondbrewing/brewery-kv/pkg/logger"
)

// Entry is a single key/value pair for [Database.PutMany].
type Entry struct {
	Key   string
	Value []byte
}

// Database manages one open engine handle and routes every operation
// through the configured key prefix.
//
// A Database is either open (it holds a handle) or closed. [New] and
// [Database.Flush] are the only ways to open it; [Database.Close] and Flush
// close it. Database is not safe for concurrent use.
type Database struct {
	path   string
	mode   Mode
	size   int64
	prefix string
	driver Driver
	logger logger.Logger

	handle Handle
}

// New opens the store at path, creating an empty backing store first if
// none exists. Every failure, including a driver that returns no handle,
// matches [ErrCouldNotOpenDatabase]. On failure no handle is left open and
// any stray lock artifact is removed.
//
// The caller must call Close when done to release the engine lock.
func New(path string, opts ...Option) (*Database, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.Driver == nil {
		cfg.Driver = Bolt
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "db", "driver", cfg.Driver.Name())

	d := &Database{
		path:   path,
		mode:   cfg.Mode,
		size:   cfg.Size,
		prefix: cfg.Prefix,
		driver: cfg.Driver,
		logger: log,
	}

	if err := d.init(); err != nil {
		d.removeLockFile()
		log.Warn("database open failed", "path", path, "error", err)
		return nil, err
	}
	return d, nil
}

// Path returns the backing store location.
func (d *Database) Path() string { return d.path }

// Prefix returns the key namespace prefix.
func (d *Database) Prefix() string { return d.prefix }

// Mode returns the access mode the store was opened with.
func (d *Database) Mode() Mode { return d.mode }

// IsOpen reports whether the database currently holds a handle.
func (d *Database) IsOpen() bool { return d.handle != nil }

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Put writes value under key, replacing any existing value.
// It reports whether the engine accepted the write.
func (d *Database) Put(key string, value []byte) bool {
	if d.handle == nil {
		return false
	}
	if err := d.handle.Replace(d.prefixKey(key), value); err != nil {
		d.logger.Warn("put failed", "key", key, "error", err)
		return false
	}
	return true
}

// PutMany writes every entry in order. It returns true only if every write
// succeeded; an empty call returns false. A failed write does not stop the
// remaining ones.
func (d *Database) PutMany(entries ...Entry) bool {
	ok := len(entries) > 0
	for _, e := range entries {
		ok = d.Put(e.Key, e.Value) && ok
	}
	return ok
}

// Get returns the value under key, or def when the key does not exist.
// A present but empty value is returned as a non-nil empty slice.
func (d *Database) Get(key string, def []byte) []byte {
	if d.handle == nil {
		return def
	}
	v, err := d.handle.Fetch(d.prefixKey(key))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			d.logger.Warn("get failed", "key", key, "error", err)
		}
		return def
	}
	return v
}

// Many fetches each key in turn. Missing keys map to nil. The result is
// keyed by the caller's unprefixed keys.
func (d *Database) Many(keys ...string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		out[k] = d.Get(k, nil)
	}
	return out
}

// Has reports whether key exists, independent of its value.
func (d *Database) Has(key string) bool {
	if d.handle == nil {
		return false
	}
	ok, err := d.handle.Exists(d.prefixKey(key))
	if err != nil {
		d.logger.Warn("has failed", "key", key, "error", err)
		return false
	}
	return ok
}

// Forget deletes key. It reports whether the engine performed a delete;
// forgetting an absent key returns false.
func (d *Database) Forget(key string) bool {
	if d.handle == nil {
		return false
	}
	if err := d.handle.Delete(d.prefixKey(key)); err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			d.logger.Warn("forget failed", "key", key, "error", err)
		}
		return false
	}
	return true
}

// Flush empties the store: it closes the handle, removes the backing store
// and opens a fresh one.
//
// A failure to reopen is returned as an error matching
// [ErrCouldNotOpenDatabase]. Any other failure along the way only yields
// false. After a false or an error the database may be closed; check IsOpen.
func (d *Database) Flush() (bool, error) {
	if err := d.close(); err != nil {
		d.logger.Warn("flush: close failed", "path", d.path, "error", err)
		return false, nil
	}

	if err := d.driver.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		d.logger.Debug("flush: remove failed", "path", d.path, "error", err)
	}

	if err := d.init(); err != nil {
		if errors.Is(err, ErrCouldNotOpenDatabase) {
			d.logger.Error("flush: reopen failed", "path", d.path, "error", err)
			return false, err
		}
		return false, nil
	}

	d.logger.Info("database flushed", "path", d.path)
	return true, nil
}

// Close releases the store. With an open handle it syncs, closes and
// removes the lock artifact; every step runs even if an earlier one fails
// and the failures are joined. Without a handle it only removes a stray
// lock artifact. Close is idempotent.
func (d *Database) Close() error {
	if d.handle == nil {
		d.removeLockFile()
		return nil
	}
	return d.close()
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// init moves the database from closed to open.
func (d *Database) init() error {
	if d.path == "" {
		return &OpenError{Path: d.path, Err: ErrEmptyPath}
	}

	if err := d.driver.Create(d.path); err != nil {
		return &OpenError{Path: d.path, Err: err}
	}

	h, err := d.driver.Open(d.path, OpenConfig{
		Flag: d.mode.Flag(),
		Perm: FileMode,
		Size: d.size,
	})
	if err != nil {
		return &OpenError{Path: d.path, Err: err}
	}
	if h == nil {
		return &OpenError{Path: d.path, Err: ErrNilHandle}
	}

	d.handle = h
	d.logger.Info("database opened",
		"path", d.path,
		"flag", d.mode.Flag(),
		"prefix", d.prefix,
	)
	return nil
}

// close moves the database from open to closed. The handle is released
// exactly once even when sync or close fail.
func (d *Database) close() error {
	h := d.handle
	if h == nil {
		return ErrClosed
	}
	d.handle = nil

	var errs []error
	if err := h.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := h.Close(); err != nil {
		errs = append(errs, err)
	}
	d.removeLockFile()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	d.logger.Info("database closed", "path", d.path)
	return nil
}

func (d *Database) removeLockFile() {
	if d.path == "" {
		return
	}
	if err := removeLockFile(d.path); err != nil {
		d.logger.Debug("lock file removal failed", "path", LockPath(d.path), "error", err)
	}
}

func (d *Database) prefixKey(key string) []byte {
	return prefixedKey([]byte(d.prefix), []byte(key))
}

// prefixedKey concatenates a prefix and a user key into a single storage
// key: prefix + key.
func prefixedKey(prefix, key []byte) []byte {
	pk := make([]byte, len(prefix)+len(key))
	copy(pk, prefix)
	copy(pk[len(prefix):], key)
	return pk
}
