package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains settings for the remote FlowMaster API.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	Burst          int     `toml:"burst"`
}

// Timeout returns the configured request timeout. Zero means no client-side timeout.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports configuration values the client cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
