// Package config loads the client configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the CLI client configuration.
type Config struct {
	Server         string
	CACert         string
	Insecure       bool
	Plaintext      bool
	DataDir        string
	Storage        string
	PageSize       int
	CacheSize      int
	RequestTimeout time.Duration
}

const (
	DefaultConfigPath     = "~/.config/snapshare/config.toml"
	defaultDataDir        = "~/.local/share/snapshare"
	defaultServer         = "localhost:8443"
	defaultStorage        = StorageSQLite
	defaultPageSize       = 20
	defaultCacheSize      = 64
	defaultRequestTimeout = 15 * time.Second
)

// Storage backends for the local store.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server:         defaultServer,
		DataDir:        mustExpand(defaultDataDir),
		Storage:        defaultStorage,
		PageSize:       defaultPageSize,
		CacheSize:      defaultCacheSize,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Server         string `toml:"server"`
		CACert         string `toml:"ca_cert"`
		Insecure       bool   `toml:"insecure"`
		Plaintext      bool   `toml:"plaintext"`
		DataDir        string `toml:"data_dir"`
		Storage        string `toml:"storage"`
		PageSize       int    `toml:"page_size"`
		CacheSize      int    `toml:"cache_size"`
		RequestTimeout string `toml:"request_timeout"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if s := strings.TrimSpace(raw.Server); s != "" {
		cfg.Server = s
	}
	if s := strings.TrimSpace(raw.CACert); s != "" {
		cfg.CACert = mustExpand(s)
	}
	cfg.Insecure = raw.Insecure
	cfg.Plaintext = raw.Plaintext
	if s := strings.TrimSpace(raw.DataDir); s != "" {
		cfg.DataDir = mustExpand(s)
	}
	switch s := strings.ToLower(strings.TrimSpace(raw.Storage)); s {
	case "":
	case StorageSQLite, StorageFile:
		cfg.Storage = s
	default:
		return Config{}, fmt.Errorf("parse config: unknown storage %q", raw.Storage)
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if raw.CacheSize > 0 {
		cfg.CacheSize = raw.CacheSize
	}
	if s := strings.TrimSpace(raw.RequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout %q", s)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

// StorePath is the sqlite file backing the local store.
func (c Config) StorePath() string { return filepath.Join(c.DataDir, "snapshare.db") }

// FileStoreDir holds one file per key when Storage is "file".
func (c Config) FileStoreDir() string { return filepath.Join(c.DataDir, "store") }

// TokenPath is where the access token is kept after login.
func (c Config) TokenPath() string { return filepath.Join(c.DataDir, "token.json") }

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
