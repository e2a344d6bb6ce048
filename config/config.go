package config

// injected configurations
var (
	APP_NAME    string = "brewery-kv"
	APP_VERSION string = "0.0.1"
)

// Settings keys. Each is also read from the upper-cased environment
// variable of the same name, e.g. BREWERY_KV_PATH.
const (
	KeyPath   = "brewery_kv_path"
	KeyMode   = "brewery_kv_mode"
	KeySize   = "brewery_kv_size"
	KeyPrefix = "brewery_kv_prefix"
	KeyEngine = "brewery_kv_engine"
)

// default values, overridden by .env, environment and flags
var (
	BREWERY_KV_PATH   string = "brewery.db"
	BREWERY_KV_MODE   int    = 1
	BREWERY_KV_SIZE   int64  = 4 << 30
	BREWERY_KV_PREFIX string = ""
	BREWERY_KV_ENGINE string = "bolt"
)

// Settings is the resolved store configuration.
type Settings struct {
	Path   string
	Mode   int
	Size   int64
	Prefix string
	Engine string
}
