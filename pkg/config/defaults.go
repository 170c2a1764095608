package config

import (
	"time"

	"github.com/RalXYZ/cc99/pkg/ast"
)

// Default returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// the config file is missing specific fields.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":5001",
			BodyLimit:    1 << 20,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Compiler: CompilerConfig{
			Bin:     "cc99",
			Args:    []string{"-V", "-"},
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "file",
			Entries: 1024,
		},
		Store: StoreConfig{
			Backend:       "sqlite",
			MongoDatabase: "cc99vis",
		},
		Transform: TransformConfig{
			Unknown:  "blank",
			MaxDepth: ast.DefaultMaxDepth,
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Server:    mergeServerConfig(loaded.Server, defaults.Server),
		Compiler:  mergeCompilerConfig(loaded.Compiler, defaults.Compiler),
		Cache:     mergeCacheConfig(loaded.Cache, defaults.Cache),
		Store:     mergeStoreConfig(loaded.Store, defaults.Store),
		Transform: mergeTransformConfig(loaded.Transform, defaults.Transform),
	}
}

func mergeServerConfig(loaded, defaults ServerConfig) ServerConfig {
	result := loaded
	if result.Addr == "" {
		result.Addr = defaults.Addr
	}
	if result.BodyLimit == 0 {
		result.BodyLimit = defaults.BodyLimit
	}
	if result.ReadTimeout == 0 {
		result.ReadTimeout = defaults.ReadTimeout
	}
	if result.WriteTimeout == 0 {
		result.WriteTimeout = defaults.WriteTimeout
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}
	return result
}

func mergeCompilerConfig(loaded, defaults CompilerConfig) CompilerConfig {
	result := loaded
	if result.Bin == "" {
		result.Bin = defaults.Bin
	}
	// Arguments belong to the binary, so a custom binary keeps its own
	// (possibly empty) argument list.
	if len(result.Args) == 0 && loaded.Bin == "" {
		result.Args = defaults.Args
	}
	if result.Timeout == 0 {
		result.Timeout = defaults.Timeout
	}
	return result
}

func mergeCacheConfig(loaded, defaults CacheConfig) CacheConfig {
	result := loaded
	if result.Backend == "" {
		result.Backend = defaults.Backend
	}
	if result.Dir == "" {
		result.Dir = defaults.Dir
	}
	if result.Entries == 0 {
		result.Entries = defaults.Entries
	}
	if result.Prefix == "" {
		result.Prefix = defaults.Prefix
	}
	return result
}

func mergeStoreConfig(loaded, defaults StoreConfig) StoreConfig {
	result := loaded
	if result.Backend == "" {
		result.Backend = defaults.Backend
	}
	if result.Path == "" {
		result.Path = defaults.Path
	}
	if result.MongoDatabase == "" {
		result.MongoDatabase = defaults.MongoDatabase
	}
	return result
}

func mergeTransformConfig(loaded, defaults TransformConfig) TransformConfig {
	result := loaded
	if result.Unknown == "" {
		result.Unknown = defaults.Unknown
	}
	if result.MaxDepth == 0 {
		result.MaxDepth = defaults.MaxDepth
	}
	return result
}
