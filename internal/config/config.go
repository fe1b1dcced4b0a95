// Package config handles irpipe.toml pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad
const FileName = "irpipe.toml"

// Config holds the pipeline options.
type Config struct {
	Pipeline Pipeline `toml:"pipeline"`
	Debug    Debug    `toml:"debug"`
	Driver   Driver   `toml:"driver"`
	Log      Log      `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Pipeline selects optional passes and analysis budgets.
type Pipeline struct {
	EnableLocalOpt bool `toml:"local-opt"`
	EnableDCE      bool `toml:"dce"`

	// MaxIterations bounds the liveness worklist; 0 means unbounded.
	MaxIterations int `toml:"max-iterations"`
}

// Debug controls print passes and timing output.
type Debug struct {
	Enabled          bool `toml:"enabled"`
	AnnotateLiveness bool `toml:"annotate-liveness"`
	ShowBlocks       bool `toml:"show-blocks"`
}

// Driver configures how scope trees are scheduled.
type Driver struct {
	Workers           int           `toml:"workers"`
	Timeout           time.Duration `toml:"timeout"`
	AbortOnFirstError bool          `toml:"abort-on-first-error"`
	RetainArtifacts   bool          `toml:"retain-artifacts"`
}

// Log sets the commonlog verbosity.
type Log struct {
	Level int `toml:"level"`
}

// Default returns the configuration used when no irpipe.toml exists.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{
			EnableLocalOpt: true,
			EnableDCE:      true,
		},
		Driver: Driver{
			Workers:         4,
			RetainArtifacts: true,
		},
		Log: Log{Level: 1},
	}
}

// Load parses a configuration file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an irpipe.toml file,
// then loads it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate rejects option values the driver cannot honor.
func (c *Config) Validate() error {
	if c.Pipeline.MaxIterations < 0 {
		return fmt.Errorf("pipeline.max-iterations must not be negative, got %d", c.Pipeline.MaxIterations)
	}
	if c.Driver.Workers < 0 {
		return fmt.Errorf("driver.workers must not be negative, got %d", c.Driver.Workers)
	}
	if c.Driver.Timeout < 0 {
		return fmt.Errorf("driver.timeout must not be negative, got %s", c.Driver.Timeout)
	}
	return nil
}
