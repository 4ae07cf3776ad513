// Package config loads fieldops configuration from an optional TOML file
// and FIELDOPS_* environment variables. Environment values override file
// values. The API access key is mandatory: without it neither the server
// nor the client commands can run, so its absence is a fatal
// configuration error rather than a recoverable one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig `toml:"server"`
	Store    StoreConfig  `toml:"store"`
	Remote   RemoteConfig `toml:"remote"`
	Log      LogConfig    `toml:"log"`
	APIToken string       `toml:"api_token"`
}

type ServerConfig struct {
	Port    int  `toml:"port"`
	Metrics bool `toml:"metrics"`
}

type StoreConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend     string `toml:"backend"`
	DataDir     string `toml:"data_dir"`
	PostgresURL string `toml:"postgres_url"`
}

type RemoteConfig struct {
	// Endpoint is the service URL used by client-mode commands
	// (import/export/customers). Empty defaults to the local server.
	Endpoint string `toml:"endpoint"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4200, Metrics: true},
		Store: StoreConfig{
			Backend: BackendSQLite,
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".fieldops")
	}
	return ".fieldops"
}

func configFilePath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "fieldops", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "fieldops", "config.toml")
	}
	return ""
}

// Load reads the config file (if present), applies environment
// overrides, and validates. A missing access key fails loudly.
func Load() (Config, error) {
	return loadWith(configFilePath(), os.Getenv)
}

func loadWith(path string, getenv func(string) string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg, getenv)

	if cfg.APIToken == "" {
		return Config{}, fmt.Errorf("missing required config: API access key. " +
			"Set FIELDOPS_API_TOKEN or api_token in the config file")
	}
	switch cfg.Store.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if cfg.Store.PostgresURL == "" {
			return Config{}, fmt.Errorf("store backend %q requires FIELDOPS_POSTGRES_URL", BackendPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("FIELDOPS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("FIELDOPS_METRICS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Metrics = enabled
		}
	}
	if v := getenv("FIELDOPS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := getenv("FIELDOPS_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := getenv("FIELDOPS_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := getenv("FIELDOPS_ENDPOINT"); v != "" {
		cfg.Remote.Endpoint = v
	}
	if v := getenv("FIELDOPS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("FIELDOPS_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
}

// Endpoint returns the service URL for client commands, defaulting to
// the local server port.
func (c Config) Endpoint() string {
	if c.Remote.Endpoint != "" {
		return c.Remote.Endpoint
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}
