// Package config loads orientation-mcp settings from YAML files.
//
// A missing file is not an error: every setting has a default, and a file
// only needs to name the values it changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ironsheep/orientation-mcp/internal/pipeline"
	"github.com/ironsheep/orientation-mcp/internal/rose"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no config path is
// given on the command line.
const EnvPath = "ORIENTATION_MCP_CONFIG"

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Analysis holds the default pipeline parameters. Tool calls and CLI
	// flags override individual values.
	Analysis pipeline.Params `yaml:"analysis"`

	// Render controls rose diagram images.
	Render struct {
		Size       int    `yaml:"size"`
		Fill       string `yaml:"fill"`
		Background string `yaml:"background"`
	} `yaml:"render"`

	// Batch controls the analyze command.
	Batch struct {
		// Workers is the number of images analysed concurrently.
		Workers int `yaml:"workers"`

		// OutputDir receives rose diagram PNGs. Empty disables them.
		OutputDir string `yaml:"output_dir"`
	} `yaml:"batch"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{Analysis: pipeline.DefaultParams()}

	render := rose.DefaultRenderOptions()
	cfg.Render.Size = render.Size
	cfg.Render.Fill = render.Fill
	cfg.Render.Background = render.Background

	cfg.Batch.Workers = runtime.NumCPU()
	return cfg
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be >= 1, got %d", c.Batch.Workers)
	}
	return nil
}

// RenderOptions converts the render section for rose.Render.
func (c *Config) RenderOptions() rose.RenderOptions {
	return rose.RenderOptions{
		Size:       c.Render.Size,
		Fill:       c.Render.Fill,
		Background: c.Render.Background,
	}
}

// ResolvePath picks the config file to load: the explicit path if set,
// otherwise the EnvPath environment variable. Empty means defaults only.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvPath)
}

// Load reads configuration from a YAML file over the defaults.
// An empty path or a file that does not exist yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating its directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path unless a file
// already exists there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return Save(DefaultConfig(), path)
}
