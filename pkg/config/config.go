// Package config provides configuration loading and management for mrirecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"mrirecon/internal/models"
	"mrirecon/pkg/pdrecon"
)

// ErrMissingInput is returned when a required input file is not configured.
var ErrMissingInput = errors.New("config: missing input")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Dims is the reconstruction geometry
	Dims models.Dimension `yaml:"dims"`

	// Method selects the regularizer (TV, TGV2, ICTGV2)
	Method pdrecon.Method `yaml:"method"`

	// Params holds the solver settings for every method
	Params pdrecon.Params `yaml:"params"`

	// Files lists the inputs and outputs of a run
	Files struct {
		// KData is the measured multi-coil k-space (.bin or .cfl)
		KData string `yaml:"kdata"`

		// Mask is the sampling pattern, one image per frame
		Mask string `yaml:"mask"`

		// Sensitivities are the coil sensitivity maps
		Sensitivities string `yaml:"sensitivities"`

		// U0 is an optional initial image, replicated into every frame
		U0 string `yaml:"u0"`

		// Output is the reconstruction (.bin, .cfl, or a directory of JPEG frames)
		Output string `yaml:"output"`

		// Reference is an optional ground truth used for quality metrics
		Reference string `yaml:"reference"`
	} `yaml:"files"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many frames are transformed in parallel
		NumCores int `yaml:"numCores"`

		// Centered selects centered (DC in the middle) k-space. The default
		// is plain FFT ordering with DC at index 0.
		Centered bool `yaml:"centered"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// DebugStep records the primal-dual gap every DebugStep iterations (0 disables)
		DebugStep int `yaml:"debugStep"`

		// ExtraData is the directory for additional results such as the gap history
		ExtraData string `yaml:"extraData"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Method: pdrecon.TGV2,
		Params: pdrecon.DefaultParams(),
	}

	cfg.Dims.Coils = 1
	cfg.Dims.Frames = 1

	cfg.Files.Output = "recon.bin"

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Output.Verbose = true

	return cfg
}

// Validate checks that the configuration describes a runnable reconstruction.
func (c *Config) Validate() error {
	if err := c.Dims.Validate2D(); err != nil {
		return err
	}
	if c.Files.KData == "" {
		return fmt.Errorf("%w: kdata file", ErrMissingInput)
	}
	if c.Files.Output == "" {
		return fmt.Errorf("%w: output file", ErrMissingInput)
	}
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("config: numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Output.DebugStep < 0 {
		return fmt.Errorf("config: debugStep must not be negative, got %d", c.Output.DebugStep)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
