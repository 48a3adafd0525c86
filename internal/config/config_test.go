package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Server.LogLevel)
	}
	if cfg.Search.DefaultK != 5 {
		t.Errorf("expected default_k 5, got %d", cfg.Search.DefaultK)
	}
	if cfg.Search.BM25K1 != 1.2 || cfg.Search.BM25B != 0.75 {
		t.Errorf("expected default bm25 params, got k1=%v b=%v", cfg.Search.BM25K1, cfg.Search.BM25B)
	}
	if cfg.Storage.MaxSessionMemories != 1000 {
		t.Errorf("expected default max_session_memories 1000, got %d", cfg.Storage.MaxSessionMemories)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	confDir := filepath.Join(dir, "rag-mcp")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	toml := `
[server]
log_level = "debug"

[search]
default_k = 10
bm25_k1 = 1.5
bm25_b = 0.5

[storage]
max_session_memories = 42
`
	if err := os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.Server.LogLevel)
	}
	if cfg.Search.DefaultK != 10 {
		t.Errorf("expected default_k 10, got %d", cfg.Search.DefaultK)
	}
	if cfg.Storage.MaxSessionMemories != 42 {
		t.Errorf("expected max_session_memories 42, got %d", cfg.Storage.MaxSessionMemories)
	}
}

func TestLoad_UnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	confDir := filepath.Join(dir, "rag-mcp")
	os.MkdirAll(confDir, 0o755)
	toml := "[server]\nlog_level = \"warn\"\nsomething_unrecognized = true\n"
	os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(toml), 0o644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("expected log_level warn, got %q", cfg.Server.LogLevel)
	}
}
