package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RalXYZ/cc99/pkg/ast"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":5001" {
		t.Errorf("expected addr :5001, got %s", cfg.Server.Addr)
	}
	if cfg.Compiler.Bin != "cc99" || strings.Join(cfg.Compiler.Args, " ") != "-V -" {
		t.Errorf("expected compiler cc99 -V -, got %s %v", cfg.Compiler.Bin, cfg.Compiler.Args)
	}
	if cfg.Transform.Unknown != "blank" {
		t.Errorf("expected unknown blank, got %s", cfg.Transform.Unknown)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
addr = ":8080"

[compiler]
timeout = "3s"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"

[transform]
unknown = "tagged"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.Server.Addr)
	}
	if cfg.Compiler.Timeout != 3*time.Second {
		t.Errorf("compiler timeout = %s, want 3s", cfg.Compiler.Timeout)
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("cache backend = %s, want redis", cfg.Cache.Backend)
	}
	if cfg.Transform.Unknown != "tagged" {
		t.Errorf("unknown = %s, want tagged", cfg.Transform.Unknown)
	}

	// Unset fields keep their defaults
	if cfg.Compiler.Bin != "cc99" || cfg.Server.BodyLimit != 1<<20 || cfg.Transform.MaxDepth != ast.DefaultMaxDepth {
		t.Errorf("defaults not merged: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
compiler:
  bin: /opt/cc99/bin/cc99
  timeout: 5s
store:
  backend: memory
transform:
  max_depth: 500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Compiler.Bin != "/opt/cc99/bin/cc99" {
		t.Errorf("bin = %s", cfg.Compiler.Bin)
	}
	if len(cfg.Compiler.Args) != 0 {
		t.Errorf("custom binary should not inherit default args, got %v", cfg.Compiler.Args)
	}
	if cfg.Compiler.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Compiler.Timeout)
	}
	if cfg.Store.Backend != "memory" || cfg.Transform.MaxDepth != 500 {
		t.Errorf("store/transform = %+v / %+v", cfg.Store, cfg.Transform)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, AppName), 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, AppName, ConfigFileName)
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"memory\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DefaultPath()
	if err != nil || got != path {
		t.Fatalf("DefaultPath() = %q, %v; want %q", got, err, path)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %s, want memory", cfg.Store.Backend)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		invalid bool
	}{
		{"bad toml", "c.toml", "[server\naddr = 1", false},
		{"bad yaml", "c.yml", "server: [", false},
		{"unknown key", "c.toml", "[server]\nport = 80\n", true},
		{"bad backend", "c.toml", "[cache]\nbackend = \"memcached\"\n", true},
		{"redis without url", "c.toml", "[cache]\nbackend = \"redis\"\n", true},
		{"mongo without uri", "c.toml", "[store]\nbackend = \"mongo\"\n", true},
		{"bad policy", "c.toml", "[transform]\nunknown = \"skip\"\n", true},
		{"negative depth", "c.toml", "[transform]\nmax_depth = -1\n", true},
		{"depth over limit", "c.toml", "[transform]\nmax_depth = 3001\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if tt.invalid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Default()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, want := range []string{"[server]", `addr = ":5001"`, "[transform]", `unknown = "blank"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Encode() output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestXDGDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name     string
		env      string
		fn       func() (string, error)
		fallback string
	}{
		{"data", "XDG_DATA_HOME", DataDir, filepath.Join(home, ".local", "share", AppName)},
		{"cache", "XDG_CACHE_HOME", CacheDir, filepath.Join(home, ".cache", AppName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, "")
			if got, err := tt.fn(); err != nil || got != tt.fallback {
				t.Errorf("default = %q, %v; want %q", got, err, tt.fallback)
			}

			base := t.TempDir()
			t.Setenv(tt.env, base)
			if got, err := tt.fn(); err != nil || got != filepath.Join(base, AppName) {
				t.Errorf("with %s = %q, %v; want %q", tt.env, got, err, filepath.Join(base, AppName))
			}
		})
	}
}
