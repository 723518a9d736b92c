// Package config loads and validates the tool's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solvanity/pkg/search"
)

// Config holds all configuration for a search run. Command-line flags
// are applied on top of the loaded file.
type Config struct {
	Search SearchConfig `yaml:"search"`
	Device DeviceConfig `yaml:"device"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// SearchConfig describes what to search for.
type SearchConfig struct {
	Prefix          string   `yaml:"prefix"`
	Suffix          string   `yaml:"suffix"`
	CaseInsensitive bool     `yaml:"case_insensitive"`
	Count           int      `yaml:"count"`
	IterationBits   int      `yaml:"iteration_bits"`
	Devices         []string `yaml:"devices"`
}

// DeviceConfig controls compute device selection.
type DeviceConfig struct {
	KernelPath string `yaml:"kernel_path"`
	AllowCPU   bool   `yaml:"allow_cpu"`
	CPUWorkers int    `yaml:"cpu_workers"`
}

// OutputConfig controls where found keypairs are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Search.Count == 0 {
		c.Search.Count = 1
	}
	if c.Search.IterationBits == 0 {
		c.Search.IterationBits = search.DefaultIterationBits
	}
	if c.Device.KernelPath == "" {
		c.Device.KernelPath = "kernel.cl"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "found"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Spec builds the search spec described by the configuration.
func (c *Config) Spec() search.Spec {
	return search.Spec{
		Prefix:        c.Search.Prefix,
		Suffix:        c.Search.Suffix,
		CaseSensitive: !c.Search.CaseInsensitive,
		TargetCount:   c.Search.Count,
		IterationBits: c.Search.IterationBits,
		Devices:       c.Search.Devices,
	}
}

// Validate validates the configuration. Search criteria are validated
// separately by the spec so flag overrides get the same checks.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, console", c.Log.Format)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output dir is required")
	}
	if c.Device.CPUWorkers < 0 {
		return fmt.Errorf("cpu workers cannot be negative")
	}
	return nil
}

// Load loads configuration: defaults, then the file if provided, then
// validation.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
