package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flag name -> settings key
var flagKeys = map[string]string{
	"path":   KeyPath,
	"mode":   KeyMode,
	"size":   KeySize,
	"prefix": KeyPrefix,
	"engine": KeyEngine,
}

// RegisterFlags declares the store flags on fs. Pass the same set to Load
// so that flags given on the command line take precedence.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("path", BREWERY_KV_PATH, "backing store path")
	fs.Int("mode", BREWERY_KV_MODE, "access mode (1 opens read-write, anything else read-only)")
	fs.Int64("size", BREWERY_KV_SIZE, "store capacity in bytes")
	fs.String("prefix", BREWERY_KV_PREFIX, "key namespace prefix")
	fs.String("engine", BREWERY_KV_ENGINE, "storage engine (bolt, pebble)")
}

// Load resolves Settings with increasing precedence from built-in defaults,
// a .env file in dir, the environment, and flags in fs that were set
// explicitly. dir may be empty to skip the file and fs may be nil.
func Load(dir string, fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault(KeyPath, BREWERY_KV_PATH)
	v.SetDefault(KeyMode, BREWERY_KV_MODE)
	v.SetDefault(KeySize, BREWERY_KV_SIZE)
	v.SetDefault(KeyPrefix, BREWERY_KV_PREFIX)
	v.SetDefault(KeyEngine, BREWERY_KV_ENGINE)

	if dir != "" {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s/.env: %w", dir, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	s := &Settings{
		Path:   v.GetString(KeyPath),
		Mode:   v.GetInt(KeyMode),
		Size:   v.GetInt64(KeySize),
		Prefix: v.GetString(KeyPrefix),
		Engine: strings.ToLower(v.GetString(KeyEngine)),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.Path == "" {
		return errors.New("config: store path must not be empty")
	}
	if s.Size < 0 {
		return fmt.Errorf("config: store size must not be negative, got %d", s.Size)
	}
	return nil
}
