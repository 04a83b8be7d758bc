package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/feed-timeline/configs"
	"github.com/lepinkainen/feed-timeline/pkg/aggregator"
	"github.com/lepinkainen/feed-timeline/pkg/database"
	"github.com/lepinkainen/feed-timeline/pkg/filesystem"
	"github.com/lepinkainen/feed-timeline/pkg/http"
)

// EnvPrefix namespaces environment overrides, e.g. FEED_TIMELINE_CACHE_TTL
const EnvPrefix = "FEED_TIMELINE"

// Settings backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQL    = "sql"
)

// Config holds the central application configuration
type Config struct {
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// FetchConfig configures the feed fetcher
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	HostDelay    time.Duration `mapstructure:"host_delay"`
}

// AggregateConfig configures the aggregation engine
type AggregateConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// CacheConfig configures the refresh cache
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	Persist    bool          `mapstructure:"persist"` // Keep timelines in the database across restarts
}

// RefreshConfig configures background cache warming
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SettingsConfig selects where the feed list is stored
type SettingsConfig struct {
	Backend  string `mapstructure:"backend"` // memory, file or sql
	Path     string `mapstructure:"path"`    // File backend only
	ReadOnly bool   `mapstructure:"read_only"`
}

// DatabaseConfig configures the shared database
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"` // File path for sqlite, DSN for postgres
}

// ServerConfig configures the HTTP host
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	AssetURL string `mapstructure:"asset_url"`
	Admin    bool   `mapstructure:"admin"` // Allow feed list edits through /settings
}

// LogConfig configures logging output
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// LoadConfig loads the embedded defaults, merges the optional file at path, then applies environment overrides
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(configs.DefaultYAML)); err != nil {
		return nil, fmt.Errorf("error reading default config: %w", err)
	}

	if resolved := locateConfig(path); resolved != "" {
		v.SetConfigFile(resolved)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", resolved, err)
		}
		slog.Debug("Loaded config file", "path", resolved)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.resolvePaths(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// locateConfig finds the user config file: the path as given, then the same name under the data directory.
// A missing file is not an error; the defaults apply.
func locateConfig(path string) string {
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return path
	}

	if !filepath.IsAbs(path) {
		if dataPath, err := filesystem.ResolvePath(path); err == nil {
			if _, err := os.Stat(dataPath); err == nil {
				return dataPath
			}
		}
	}

	slog.Debug("No config file found, using defaults", "path", path)
	return ""
}

// resolvePaths places relative file paths under the data directory
func (c *Config) resolvePaths() error {
	var err error

	if c.Settings.Backend == BackendFile {
		if c.Settings.Path, err = filesystem.ResolvePath(c.Settings.Path); err != nil {
			return fmt.Errorf("failed to resolve settings path: %w", err)
		}
	}
	if c.Database.Driver == database.DriverSQLite && c.Database.Path != ":memory:" {
		if c.Database.Path, err = filesystem.ResolvePath(c.Database.Path); err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
	}
	if c.Log.File != "" {
		if c.Log.File, err = filesystem.ResolvePath(c.Log.File); err != nil {
			return fmt.Errorf("failed to resolve log file path: %w", err)
		}
	}

	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.Settings.Backend {
	case BackendMemory, BackendSQL:
	case BackendFile:
		if c.Settings.Path == "" {
			return fmt.Errorf("settings.path is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported settings backend %q (want memory, file or sql)", c.Settings.Backend)
	}

	switch c.Database.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", c.Database.Driver)
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Aggregate.MaxConcurrency < 0 {
		return fmt.Errorf("aggregate.max_concurrency must not be negative, got %d", c.Aggregate.MaxConcurrency)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("unsupported log level %q", c.Log.Level)
	}

	return nil
}

// NeedsDatabase reports whether any enabled component stores data in the database
func (c *Config) NeedsDatabase() bool {
	return c.Cache.Persist || c.Settings.Backend == BackendSQL
}

// HTTPClient returns the fetcher configuration
func (c *Config) HTTPClient() *http.ClientConfig {
	client := http.DefaultConfig()
	client.Timeout = c.Fetch.Timeout
	client.HostDelay = c.Fetch.HostDelay
	if c.Fetch.UserAgent != "" {
		client.UserAgent = c.Fetch.UserAgent
	}
	if c.Fetch.MaxBodyBytes > 0 {
		client.MaxBodyBytes = c.Fetch.MaxBodyBytes
	}
	return client
}

// Engine returns the aggregation engine configuration
func (c *Config) Engine() aggregator.Config {
	return aggregator.Config{
		Timeout:        c.Fetch.Timeout,
		MaxConcurrency: c.Aggregate.MaxConcurrency,
	}
}

// DatabaseOptions returns the database connection configuration
func (c *Config) DatabaseOptions() database.Config {
	db := database.DefaultConfig()
	db.Driver = c.Database.Driver
	db.Path = c.Database.Path
	return db
}
