package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"procinspect/process"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".procinspect"
	configFile string = "config.yml"
)

// Color modes accepted by the color option.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// EnumInitialCapacity is the number of PIDs the first enumeration
	// attempt has room for.
	EnumInitialCapacity int `yaml:"enum-initial-capacity"`
	// EnumMaxGrowths bounds how many times the enumeration buffer is
	// doubled when the OS fills it completely.
	EnumMaxGrowths *int `yaml:"enum-max-growths,omitempty"`

	// Workers is the number of processes inspected concurrently by list.
	// Zero means one per CPU.
	Workers int `yaml:"workers"`

	// ReadMaxBytes caps the length accepted by the read command.
	ReadMaxBytes uint64 `yaml:"read-max-bytes"`

	// ScanChunkSize is the largest single read issued while scanning.
	ScanChunkSize uint64 `yaml:"scan-chunk-size"`

	HexdumpBytesPerLine int `yaml:"hexdump-bytes-per-line"`

	// Color is one of auto, always or never.
	Color string `yaml:"color"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	growths := process.DefaultEnumMaxGrowths
	return &Config{
		EnumInitialCapacity: process.DefaultEnumInitialCapacity,
		EnumMaxGrowths:      &growths,
		ReadMaxBytes:        1 << 20,
		ScanChunkSize:       4 << 20,
		HexdumpBytesPerLine: 16,
		Color:               ColorAuto,
	}
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, file), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigFilePath(configFile)
		if err != nil {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every option holds a usable value.
func (c *Config) Validate() error {
	var errs []error
	if c.EnumInitialCapacity <= 0 || c.EnumInitialCapacity > process.MaxEnumInitialCapacity {
		errs = append(errs, fmt.Errorf("enum-initial-capacity must be between 1 and %d, got %d", process.MaxEnumInitialCapacity, c.EnumInitialCapacity))
	}
	if c.EnumMaxGrowths != nil && (*c.EnumMaxGrowths < 0 || *c.EnumMaxGrowths > 16) {
		errs = append(errs, fmt.Errorf("enum-max-growths must be between 0 and 16, got %d", *c.EnumMaxGrowths))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.ReadMaxBytes == 0 {
		errs = append(errs, errors.New("read-max-bytes must be positive"))
	}
	if c.ScanChunkSize < 4096 {
		errs = append(errs, fmt.Errorf("scan-chunk-size must be at least 4096, got %d", c.ScanChunkSize))
	}
	if c.HexdumpBytesPerLine <= 0 || c.HexdumpBytesPerLine > 64 {
		errs = append(errs, fmt.Errorf("hexdump-bytes-per-line must be between 1 and 64, got %d", c.HexdumpBytesPerLine))
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("color must be auto, always or never, got %q", c.Color))
	}
	return errors.Join(errs...)
}

// EnumOptions converts the enumeration settings for process.EnumerateProcesses.
func (c *Config) EnumOptions() []process.EnumOption {
	opts := []process.EnumOption{process.WithInitialCapacity(c.EnumInitialCapacity)}
	if c.EnumMaxGrowths != nil {
		opts = append(opts, process.WithMaxGrowths(*c.EnumMaxGrowths))
	}
	return opts
}

// SaveConfig will marshal and save the config struct to path.
func SaveConfig(conf *Config, path string) error {
	out, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
