// Package config loads the rag-mcp TOML configuration file described in
// spec §6, falling back to defaults when the file is absent.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config mirrors the TOML sections and keys from spec §6.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Search  SearchConfig  `mapstructure:"search"`
	Storage StorageConfig `mapstructure:"storage"`
}

type ServerConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

type SearchConfig struct {
	DefaultK int     `mapstructure:"default_k"`
	BM25K1   float64 `mapstructure:"bm25_k1"`
	BM25B    float64 `mapstructure:"bm25_b"`
}

type StorageConfig struct {
	GlobalDBPath       string `mapstructure:"global_db_path"`
	ProjectDBName      string `mapstructure:"project_db_name"`
	MaxSessionMemories int    `mapstructure:"max_session_memories"`
}

// Default returns the configuration spec §6 describes when no file, or no
// key within a present file, is found.
func Default() *Config {
	return &Config{
		Server: ServerConfig{LogLevel: "info"},
		Search: SearchConfig{DefaultK: 5, BM25K1: 1.2, BM25B: 0.75},
		Storage: StorageConfig{
			GlobalDBPath:       defaultGlobalDBPath(),
			ProjectDBName:      ".rag-mcp/data.db",
			MaxSessionMemories: 1000,
		},
	}
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}

func defaultGlobalDBPath() string {
	// RAG_MCP_DB_PATH allows tests to isolate the global database without
	// writing a config file, mirroring the original implementation's test
	// override (original_source/crates/rag-core/src/config.rs).
	if dir := os.Getenv("RAG_MCP_DB_PATH"); dir != "" {
		return filepath.Join(dir, "global.db")
	}
	return filepath.Join(configDir(), "rag-mcp", "global.db")
}

// ConfigPath returns the path Load reads from.
func ConfigPath() string {
	return filepath.Join(configDir(), "rag-mcp", "config.toml")
}

// Load reads <config-dir>/rag-mcp/config.toml, falling back to defaults for
// any key that is missing or for the whole file when it does not exist.
// Unknown keys are ignored by viper's Unmarshal.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(ConfigPath())
	v.SetConfigType("toml")
	v.SetEnvPrefix("RAG_MCP")
	v.AutomaticEnv()

	v.SetDefault("server.log_level", cfg.Server.LogLevel)
	v.SetDefault("search.default_k", cfg.Search.DefaultK)
	v.SetDefault("search.bm25_k1", cfg.Search.BM25K1)
	v.SetDefault("search.bm25_b", cfg.Search.BM25B)
	v.SetDefault("storage.global_db_path", cfg.Storage.GlobalDBPath)
	v.SetDefault("storage.project_db_name", cfg.Storage.ProjectDBName)
	v.SetDefault("storage.max_session_memories", cfg.Storage.MaxSessionMemories)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
