// Package config loads compression settings from YAML files.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	zfp "github.com/mrjoshuak/go-zfp"
)

// Mode names accepted in configuration files.
const (
	ModeReversible = "reversible"
	ModeRate       = "fixed-rate"
	ModePrecision  = "fixed-precision"
	ModeAccuracy   = "fixed-accuracy"
	ModeExpert     = "expert"
)

// Config represents the compression configuration
type Config struct {
	Mode      string  `yaml:"mode"`
	Rate      float64 `yaml:"rate,omitempty"`
	Precision int     `yaml:"precision,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`
	Expert    Expert  `yaml:"expert,omitempty"`
	Workers   int     `yaml:"workers"`
	Logging   Logging `yaml:"logging"`
}

// Expert holds raw rate control parameters, used when Mode is "expert".
type Expert struct {
	MinBits int `yaml:"min_bits"`
	MaxBits int `yaml:"max_bits"`
	MaxPrec int `yaml:"max_prec"`
	MinExp  int `yaml:"min_exp"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeReversible,
		Workers: 0,
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings that do not depend on the array type.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeReversible, ModeExpert:
	case ModeRate:
		if c.Rate <= 0 {
			return fmt.Errorf("%w: rate must be positive, got %v", zfp.ErrInvalidParams, c.Rate)
		}
	case ModePrecision:
		if c.Precision < 1 || c.Precision > zfp.MaxPrecision {
			return fmt.Errorf("%w: precision must be in [1, %d], got %d", zfp.ErrInvalidParams, zfp.MaxPrecision, c.Precision)
		}
	case ModeAccuracy:
		if c.Tolerance < 0 {
			return fmt.Errorf("%w: tolerance must not be negative, got %v", zfp.ErrInvalidParams, c.Tolerance)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", zfp.ErrInvalidParams, c.Mode)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// Params returns the rate control parameters for arrays of type t with dims
// dimensions.
func (c *Config) Params(t zfp.ScalarType, dims int) (zfp.Params, error) {
	if err := c.Validate(); err != nil {
		return zfp.Params{}, err
	}

	var p zfp.Params
	switch c.Mode {
	case ModeReversible:
		p = zfp.Reversible()
	case ModeRate:
		p = zfp.FixedRate(t, dims, c.Rate)
	case ModePrecision:
		p = zfp.FixedPrecision(c.Precision)
	case ModeAccuracy:
		p = zfp.FixedAccuracy(c.Tolerance)
	case ModeExpert:
		p = zfp.Params{
			MinBits: c.Expert.MinBits,
			MaxBits: c.Expert.MaxBits,
			MaxPrec: c.Expert.MaxPrec,
			MinExp:  c.Expert.MinExp,
		}
	}
	if err := p.Validate(); err != nil {
		return zfp.Params{}, err
	}
	return p, nil
}

// Options returns compression options for arrays of type t with dims
// dimensions. Log output goes to stderr.
func (c *Config) Options(t zfp.ScalarType, dims int) (*zfp.Options, error) {
	return c.options(t, dims, os.Stderr)
}

func (c *Config) options(t zfp.ScalarType, dims int, out io.Writer) (*zfp.Options, error) {
	p, err := c.Params(t, dims)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return &zfp.Options{
		Params:  p,
		Workers: c.Workers,
		Logger:  slog.New(handler).With("component", "zfp"),
	}, nil
}

// parseLevel maps a level name to a slog level. The empty name means info.
func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
