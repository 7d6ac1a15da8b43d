// Package config loads forgedeps settings from a TOML file.
//
// The file lives at ~/.config/forgedeps/config.toml by default and
// every field is optional; missing values fall back to the defaults
// returned by Default. Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Cache backend names accepted in the [cache] section.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the full application configuration.
type Config struct {
	Forge Forge `toml:"forge"`
	Cache Cache `toml:"cache"`
	Serve Serve `toml:"serve"`
}

// Forge configures the module registry client.
type Forge struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// Cache configures metadata caching.
type Cache struct {
	Backend string   `toml:"backend"` // file, redis, mongo, none
	TTL     duration `toml:"ttl"`
	Dir     string   `toml:"dir"`       // file backend
	Redis   string   `toml:"redis"`     // redis backend address
	MongoDB string   `toml:"mongo_uri"` // mongo backend connection URI
}

// Serve configures the HTTP API server.
type Serve struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Forge: Forge{
			BaseURL: "https://forgeapi.puppet.com",
			Timeout: duration(10 * time.Second),
		},
		Cache: Cache{
			Backend: BackendFile,
			TTL:     duration(time.Hour),
		},
		Serve: Serve{
			Addr: ":8080",
		},
	}
}

// Path returns the default config file location,
// ~/.config/forgedeps/config.toml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "forgedeps", "config.toml"), nil
}

// CacheDir returns the default file-cache directory,
// ~/.cache/forgedeps.
func CacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", "forgedeps"), nil
}

// Load reads the config file at path, applying defaults for any field
// the file omits. A missing file is not an error; the defaults are
// returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMongo, BackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// ForgeTimeout returns the registry client timeout.
func (c Config) ForgeTimeout() time.Duration { return time.Duration(c.Forge.Timeout) }

// CacheTTL returns the metadata cache TTL.
func (c Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTL) }

// duration lets TOML carry values like "30s" or "1h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}
