package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	if cfg.Forge.BaseURL != want.Forge.BaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.Forge.BaseURL, want.Forge.BaseURL)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", cfg.Cache.Backend, BackendFile)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[forge]
base_url = "http://localhost:3000"
timeout = "30s"

[cache]
backend = "redis"
redis = "localhost:6379"
ttl = "15m"

[serve]
addr = ":9999"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Forge.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q", cfg.Forge.BaseURL)
	}
	if cfg.ForgeTimeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.ForgeTimeout())
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.Redis != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.CacheTTL() != 15*time.Minute {
		t.Errorf("ttl = %v", cfg.CacheTTL())
	}
	if cfg.Serve.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Serve.Addr)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"none\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Backend = %q", cfg.Cache.Backend)
	}
	if cfg.Forge.BaseURL != Default().Forge.BaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.Forge.BaseURL)
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"memcached\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
