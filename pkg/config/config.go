// Package config loads cc99vis settings from TOML or YAML files.
//
// Settings are read from $XDG_CONFIG_HOME/cc99vis/config.toml (or
// ~/.config/cc99vis/config.toml) unless a path is given explicitly. Files
// ending in .yaml or .yml are parsed as YAML; everything else as TOML.
// Missing fields fall back to [Default], and command-line flags override
// whatever the file says.
//
//	[server]
//	addr = ":5001"
//	body_limit = 1048576
//
//	[compiler]
//	bin = "cc99"
//	timeout = "10s"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "sqlite"
//
//	[transform]
//	unknown = "tagged"
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/RalXYZ/cc99/pkg/ast"
)

// AppName names the configuration, cache and data directories.
const AppName = "cc99vis"

// ConfigFileName is the name of the default configuration file.
const ConfigFileName = "config.toml"

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all cc99vis configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Compiler  CompilerConfig  `toml:"compiler" yaml:"compiler"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Transform TransformConfig `toml:"transform" yaml:"transform"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	BodyLimit    int64         `toml:"body_limit" yaml:"body_limit"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	CORSOrigins  []string      `toml:"cors_origins" yaml:"cors_origins"`
}

// CompilerConfig holds configuration for the external cc99 compiler.
type CompilerConfig struct {
	Bin     string        `toml:"bin" yaml:"bin"`
	Args    []string      `toml:"args" yaml:"args"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend  string `toml:"backend" yaml:"backend"` // file, memory, redis or none
	Dir      string `toml:"dir" yaml:"dir"`         // file backend; empty selects the XDG cache dir
	Entries  int    `toml:"entries" yaml:"entries"` // memory backend size
	RedisURL string `toml:"redis_url" yaml:"redis_url"`
	Prefix   string `toml:"prefix" yaml:"prefix"` // key prefix for shared backends
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend       string `toml:"backend" yaml:"backend"` // memory, sqlite or mongo
	Path          string `toml:"path" yaml:"path"`       // sqlite backend; empty selects the XDG data dir
	MongoURI      string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database" yaml:"mongo_database"`
}

// TransformConfig holds defaults for AST conversion.
type TransformConfig struct {
	Unknown  string `toml:"unknown" yaml:"unknown"` // blank, tagged or fail
	MaxDepth int    `toml:"max_depth" yaml:"max_depth"`
}

// Valid backend and policy names.
var (
	ValidCacheBackends = []string{"file", "memory", "redis", "none"}
	ValidStoreBackends = []string{"memory", "sqlite", "mongo"}
	ValidUnknown       = []string{"blank", "tagged", "fail"}
)

// Load reads the config file at path, falling back to defaults.
// An empty path selects the default location. A missing file is not an
// error: the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	merged := Merge(loaded, Default())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Parse decodes config data. ext selects the syntax: ".yaml" and ".yml" are
// YAML, anything else is TOML.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
		}
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if !contains(ValidCacheBackends, cfg.Cache.Backend) {
		return fmt.Errorf("%w: cache.backend must be one of %v, got %q",
			ErrInvalidConfig, ValidCacheBackends, cfg.Cache.Backend)
	}
	if cfg.Cache.Entries < 0 {
		return fmt.Errorf("%w: cache.entries must not be negative, got %d",
			ErrInvalidConfig, cfg.Cache.Entries)
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisURL == "" {
		return fmt.Errorf("%w: cache.redis_url is required for the redis backend", ErrInvalidConfig)
	}

	if !contains(ValidStoreBackends, cfg.Store.Backend) {
		return fmt.Errorf("%w: store.backend must be one of %v, got %q",
			ErrInvalidConfig, ValidStoreBackends, cfg.Store.Backend)
	}
	if cfg.Store.Backend == "mongo" && cfg.Store.MongoURI == "" {
		return fmt.Errorf("%w: store.mongo_uri is required for the mongo backend", ErrInvalidConfig)
	}

	if !contains(ValidUnknown, cfg.Transform.Unknown) {
		return fmt.Errorf("%w: transform.unknown must be one of %v, got %q",
			ErrInvalidConfig, ValidUnknown, cfg.Transform.Unknown)
	}
	if cfg.Transform.MaxDepth <= 0 || cfg.Transform.MaxDepth > ast.MaxDepthLimit {
		return fmt.Errorf("%w: transform.max_depth must be between 1 and %d, got %d",
			ErrInvalidConfig, ast.MaxDepthLimit, cfg.Transform.MaxDepth)
	}

	if cfg.Server.BodyLimit <= 0 {
		return fmt.Errorf("%w: server.body_limit must be positive, got %d",
			ErrInvalidConfig, cfg.Server.BodyLimit)
	}
	if cfg.Compiler.Timeout < 0 {
		return fmt.Errorf("%w: compiler.timeout must not be negative, got %s",
			ErrInvalidConfig, cfg.Compiler.Timeout)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/cc99vis/config.toml, falling back to
// ~/.config/cc99vis/config.toml.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DataDir returns the directory for persistent data such as the snapshot
// database: $XDG_DATA_HOME/cc99vis or ~/.local/share/cc99vis.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the default file cache directory: $XDG_CACHE_HOME/cc99vis
// or ~/.cache/cc99vis.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
