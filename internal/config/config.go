// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig holds catalog engine configuration
type CatalogConfig struct {
	DataDir      string `mapstructure:"data_dir"`      // SQLite and bolt files live here
	MaxPlaylists int    `mapstructure:"max_playlists"` // 0 = unlimited
	BatchSize    int    `mapstructure:"batch_size"`    // records per chunked load
	StreamExt    string `mapstructure:"stream_ext"`    // live stream container extension
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	PageCapacity     int           `mapstructure:"page_capacity"`
	CountCapacity    int           `mapstructure:"count_capacity"`
	CategoryCapacity int           `mapstructure:"category_capacity"`
}

// RefreshConfig holds scheduled refresh configuration
type RefreshConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			DataDir:      defaultDataPath(),
			MaxPlaylists: 0,
			BatchSize:    50,
			StreamExt:    "ts",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Interval: 12 * time.Hour,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "teleguide", "teleguide.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "teleguide", "teleguide.log")
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "teleguide")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "teleguide")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "teleguide")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "teleguide")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("TELEGUIDE")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("catalog.data_dir", cfg.Catalog.DataDir)
	viper.Set("catalog.max_playlists", cfg.Catalog.MaxPlaylists)
	viper.Set("catalog.batch_size", cfg.Catalog.BatchSize)
	viper.Set("catalog.stream_ext", cfg.Catalog.StreamExt)

	viper.Set("cache.ttl", cfg.Cache.TTL)
	viper.Set("cache.page_capacity", cfg.Cache.PageCapacity)
	viper.Set("cache.count_capacity", cfg.Cache.CountCapacity)
	viper.Set("cache.category_capacity", cfg.Cache.CategoryCapacity)

	viper.Set("refresh.enabled", cfg.Refresh.Enabled)
	viper.Set("refresh.interval", cfg.Refresh.Interval)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IndexPath returns the SQLite database file path.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Catalog.DataDir, "catalog.db")
}

// FallbackPath returns the bolt database file path.
func (c *Config) FallbackPath() string {
	return filepath.Join(c.Catalog.DataDir, "catalog.bolt")
}
