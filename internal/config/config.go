package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/autobrr/sha1brr/internal/sha1"
	"gopkg.in/yaml.v3"
)

// Config represents the YAML configuration file
type Config struct {
	Version  int                `yaml:"version"`
	Default  *Options           `yaml:"default"`
	Profiles map[string]Options `yaml:"profiles"`
}

// Options represents the settings of a single profile
type Options struct {
	Provider   string `yaml:"provider"`
	Workers    int    `yaml:"workers"`
	BufferSize int    `yaml:"buffer_size"`
	LogLevel   string `yaml:"log_level"`
	Verbose    bool   `yaml:"verbose"`
	Quiet      bool   `yaml:"quiet"`
}

// FindConfigFile searches for a config file in known locations
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("could not read config file: %w", err)
		}
		return explicitPath, nil
	}

	locations := []string{
		"sha1brr.yaml", // current directory
	}

	// add user home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "sha1brr", "config.yaml"), // ~/.config/sha1brr/
			filepath.Join(home, ".sha1brr", "config.yaml"),           // ~/.sha1brr/
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}

	return "", fmt.Errorf("could not find config file in known locations")
}

// Load loads and validates a config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	if config.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d", config.Version)
	}

	if config.Default != nil {
		if err := config.Default.validate(); err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
	}
	for name, p := range config.Profiles {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}

	return &config, nil
}

// GetProfile returns a profile by name, merged with default settings. An
// empty name returns the defaults alone.
func (c *Config) GetProfile(name string) (*Options, error) {
	var merged Options
	if c.Default != nil {
		merged = *c.Default
	}
	if name == "" {
		return &merged, nil
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	// override defaults with profile-specific values
	if profile.Provider != "" {
		merged.Provider = profile.Provider
	}
	if profile.Workers != 0 {
		merged.Workers = profile.Workers
	}
	if profile.BufferSize != 0 {
		merged.BufferSize = profile.BufferSize
	}
	if profile.LogLevel != "" {
		merged.LogLevel = profile.LogLevel
	}

	// explicit bool overrides
	if profile.Verbose != merged.Verbose {
		merged.Verbose = profile.Verbose
	}
	if profile.Quiet != merged.Quiet {
		merged.Quiet = profile.Quiet
	}

	return &merged, nil
}

// HashProvider returns the parsed provider setting.
func (o *Options) HashProvider() (sha1.Provider, error) {
	return sha1.ParseProvider(o.Provider)
}

func (o *Options) validate() error {
	if _, err := o.HashProvider(); err != nil {
		return err
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", o.Workers)
	}
	if o.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative: %d", o.BufferSize)
	}
	return nil
}
