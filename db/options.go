package db

import (
	"runtime"

	"github.com/beyondbrewing/brewery-kv/pkg/logger"
)

// DefaultSize is the default store capacity: 4 GiB.
const DefaultSize int64 = 4 << 30

// Config holds the construction parameters of a [Database].
// Use functional [Option] values with [New] rather than constructing a
// Config directly.
type Config struct {
	// Mode selects read-only or read-write access. See [Mode.Flag].
	Mode Mode

	// Size is the store capacity in bytes, forwarded to the driver.
	Size int64

	// Prefix is prepended to every logical key.
	Prefix string

	// Driver opens the backing store. Defaults to [Bolt].
	Driver Driver

	// Logger receives structured operational log messages.
	// If not set, the global logger.Default() is used.
	Logger logger.Logger
}

// DefaultConfig returns the construction defaults: read mode, 4 GiB
// capacity, no prefix, bolt engine.
func DefaultConfig() *Config {
	return &Config{
		Mode:   ModeRead,
		Size:   DefaultSize,
		Driver: Bolt,
	}
}

// Option is a functional option applied to [Config] during [New].
type Option func(*Config)

// WithMode sets the access mode.
func WithMode(m Mode) Option {
	return func(c *Config) { c.Mode = m }
}

// WithSize sets the store capacity in bytes.
func WithSize(size int64) Option {
	return func(c *Config) { c.Size = size }
}

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(c *Config) { c.Prefix = prefix }
}

// WithDriver selects the storage engine.
func WithDriver(d Driver) Option {
	return func(c *Config) { c.Driver = d }
}

// WithLogger sets a custom logger for the database.
// If not set, the global logger.Default() is used.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// ---------------------------------------------------------------------------
// Pebble tuning
// ---------------------------------------------------------------------------

// PebbleConfig holds the tunable parameters of a [PebbleDriver].
type PebbleConfig struct {
	// CacheSize is the shared block-cache capacity in bytes.
	CacheSize int64

	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64

	// MaxConcurrentCompactions controls parallelism for background
	// compactions.
	MaxConcurrentCompactions int

	// MaxOpenFiles limits the number of open file descriptors Pebble
	// keeps open. Use 0 for the engine default.
	MaxOpenFiles int

	// L0CompactionThreshold is the number of L0 sub-levels that trigger
	// a compaction into L1.
	L0CompactionThreshold int

	// L0StopWritesThreshold is the hard limit on L0 sub-levels. When
	// reached, foreground writes stall until compaction catches up.
	L0StopWritesThreshold int

	// LBaseMaxBytes is the maximum total size of the base level (L1).
	LBaseMaxBytes int64

	// WALDir overrides the WAL directory. Leave empty to co-locate WAL
	// files with the store.
	WALDir string

	// SyncWrites controls whether each write is synced to stable storage.
	// The WAL is still flushed on Sync and Close regardless.
	SyncWrites bool
}

// DefaultPebbleConfig returns a PebbleConfig sized for a small embedded
// store with point lookups.
func DefaultPebbleConfig() *PebbleConfig {
	return &PebbleConfig{
		CacheSize:                64 << 20, // 64 MB
		MemTableSize:             16 << 20, // 16 MB
		MaxConcurrentCompactions: runtime.NumCPU(),
		MaxOpenFiles:             0,
		L0CompactionThreshold:    4,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20, // 64 MB
	}
}

// PebbleOption is a functional option applied to [PebbleConfig] by
// [NewPebbleDriver].
type PebbleOption func(*PebbleConfig)

// WithCacheSize sets the shared block-cache capacity in bytes.
func WithCacheSize(size int64) PebbleOption {
	return func(c *PebbleConfig) { c.CacheSize = size }
}

// WithMemTableSize sets the memtable size in bytes.
func WithMemTableSize(size uint64) PebbleOption {
	return func(c *PebbleConfig) { c.MemTableSize = size }
}

// WithMaxConcurrentCompactions sets background compaction parallelism.
func WithMaxConcurrentCompactions(n int) PebbleOption {
	return func(c *PebbleConfig) { c.MaxConcurrentCompactions = n }
}

// WithMaxOpenFiles limits the number of open file descriptors.
func WithMaxOpenFiles(n int) PebbleOption {
	return func(c *PebbleConfig) { c.MaxOpenFiles = n }
}

// WithL0CompactionThreshold sets the L0 sub-level compaction trigger.
func WithL0CompactionThreshold(n int) PebbleOption {
	return func(c *PebbleConfig) { c.L0CompactionThreshold = n }
}

// WithL0StopWritesThreshold sets the L0 write-stall limit.
func WithL0StopWritesThreshold(n int) PebbleOption {
	return func(c *PebbleConfig) { c.L0StopWritesThreshold = n }
}

// WithLBaseMaxBytes sets the max size of the base compaction level.
func WithLBaseMaxBytes(size int64) PebbleOption {
	return func(c *PebbleConfig) { c.LBaseMaxBytes = size }
}

// WithWALDir sets a separate directory for write-ahead log files.
func WithWALDir(dir string) PebbleOption {
	return func(c *PebbleConfig) { c.WALDir = dir }
}

// WithSyncWrites enables per-write durability (fsync).
func WithSyncWrites(sync bool) PebbleOption {
	return func(c *PebbleConfig) { c.SyncWrites = sync }
}
