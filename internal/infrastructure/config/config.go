// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the directory name for tracker configuration.
	DefaultConfigDir = ".tracker"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultStoreFile is the default SQLite file name, relative to the config dir.
	DefaultStoreFile = "tracker.db"
	// EnvPrefix prefixes environment overrides, e.g. TRACKER_ADMIN_PASSWORD.
	EnvPrefix = "TRACKER"
)

// Config holds static configuration (read-only after init).
type Config struct {
	Store  StoreConfig  `yaml:"store,omitempty" mapstructure:"store"`
	Admin  AdminConfig  `yaml:"admin,omitempty" mapstructure:"admin"`
	Server ServerConfig `yaml:"server,omitempty" mapstructure:"server"`
}

// StoreConfig holds configuration for the key-value store.
type StoreConfig struct {
	// Path is the SQLite database file. Relative paths are resolved against
	// the config directory.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
	// CacheTTL bounds how long values stay in the read cache. Zero keeps
	// them until they are rewritten. Cached values are checked against the
	// store's per-key version on every read, so writes from other processes
	// are always seen.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty" mapstructure:"cache_ttl"`
}

// AdminConfig holds the demo moderation settings.
type AdminConfig struct {
	Password   string        `yaml:"password,omitempty" mapstructure:"password"`
	SessionTTL time.Duration `yaml:"session_ttl,omitempty" mapstructure:"session_ttl"`
}

// ServerConfig holds configuration for the HTTP surface.
type ServerConfig struct {
	Addr        string  `yaml:"addr,omitempty" mapstructure:"addr"`
	CORSOrigin  string  `yaml:"cors_origin,omitempty" mapstructure:"cors_origin"`
	SubmitRPS   float64 `yaml:"submit_rps,omitempty" mapstructure:"submit_rps"`
	SubmitBurst int     `yaml:"submit_burst,omitempty" mapstructure:"submit_burst"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path: DefaultStoreFile,
		},
		Admin: AdminConfig{
			Password:   "haiti",
			SessionTTL: 30 * time.Minute,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigin:  "*",
			SubmitRPS:   1.0 / 3.0,
			SubmitBurst: 1,
		},
	}
}

// Load loads configuration from the .tracker directory in the given path.
// TRACKER_* environment variables override values from the file.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s (run 'tracker init' first)", configFile)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Store.Path = resolveStorePath(basePath, cfg.Store.Path)
	return &cfg, nil
}

// setDefaults registers every key so env overrides apply even when the
// file omits them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.cache_ttl", cfg.Store.CacheTTL)
	v.SetDefault("admin.password", cfg.Admin.Password)
	v.SetDefault("admin.session_ttl", cfg.Admin.SessionTTL)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.cors_origin", cfg.Server.CORSOrigin)
	v.SetDefault("server.submit_rps", cfg.Server.SubmitRPS)
	v.SetDefault("server.submit_burst", cfg.Server.SubmitBurst)
}

func resolveStorePath(basePath, path string) string {
	if path == "" {
		path = DefaultStoreFile
	}
	if path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ConfigDir(basePath), path)
}

// ConfigDir returns the path to the .tracker config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a tracker config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
