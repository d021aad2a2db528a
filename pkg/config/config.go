// Package config loads the user settings file of the xmkit tools.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the tools look for settings when no path is given.
const DefaultPath = "~/.xmkit.yaml"

// Preview configures sample playback.
type Preview struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`
}

// SaveSettings configures module writing.
type SaveSettings struct {
	WithoutSamples bool `yaml:"without_samples"`
}

// Config is the settings file.
type Config struct {
	Charset string       `yaml:"charset"`
	TempDir string       `yaml:"temp_dir"`
	Verbose bool         `yaml:"verbose"`
	Preview Preview      `yaml:"preview"`
	Save    SaveSettings `yaml:"save"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		Charset: "latin1",
		TempDir: os.TempDir(),
		Preview: Preview{SampleRate: 44100, BufferSize: 2048},
	}
}

// Load reads the settings at path, expanding a leading ~. A missing file
// yields the defaults; fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", expanded, err)
	}
	if cfg.TempDir, err = homedir.Expand(cfg.TempDir); err != nil {
		return cfg, fmt.Errorf("expand temp_dir: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Charset {
	case "latin1", "cp437":
	default:
		return fmt.Errorf("charset %q: want latin1 or cp437", c.Charset)
	}
	if c.Preview.SampleRate < 8000 || c.Preview.SampleRate > 192000 {
		return fmt.Errorf("preview.sample_rate %d out of range", c.Preview.SampleRate)
	}
	if c.Preview.BufferSize < 64 {
		return fmt.Errorf("preview.buffer_size %d too small", c.Preview.BufferSize)
	}
	return nil
}
