package routekit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BurntSushi/toml"

	"github.com/felixgeelhaar/routekit/internal/logging"
)

// DefaultMaxRedirects bounds redirect chains when no limit is configured
const DefaultMaxRedirects = 10

// Config configures a Router
type Config struct {
	// MaxRedirects is the number of redirects one navigation may follow.
	// Default: 10.
	MaxRedirects int `toml:"max_redirects"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `toml:"log_level"`

	// LogFormat is text or json. Default: text.
	LogFormat string `toml:"log_format"`

	// Metrics enables Prometheus metrics collection.
	Metrics bool `toml:"metrics"`
}

// DefaultConfig returns a Config with defaults applied
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = string(logging.FormatText)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxRedirects < 0 {
		return errors.New("MaxRedirects must be >= 0")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// NewLogger builds a logger writing to w at the configured level and format
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

// LoadConfig reads a TOML config file, applies defaults and validates it
func LoadConfig(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}
