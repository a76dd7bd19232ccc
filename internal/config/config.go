// Package config loads analyzer settings from YAML and supplies defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/edge-response-mcp/internal/analysis"
	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Edge detection thresholds
	Edge struct {
		LowThreshold  float64 `yaml:"lowThreshold"`
		HighThreshold float64 `yaml:"highThreshold"`
	} `yaml:"edge"`

	// Circle transform parameters
	Circle struct {
		// AccumulatorThreshold is the vote count a center must exceed
		AccumulatorThreshold int `yaml:"accumulatorThreshold"`

		// MinDistDivisor sets the minimum center separation to rows/divisor
		MinDistDivisor int `yaml:"minDistDivisor"`

		// MinRadius and MaxRadius bound the search; 0 for MaxRadius means
		// limited only by the image
		MinRadius int `yaml:"minRadius"`
		MaxRadius int `yaml:"maxRadius"`
	} `yaml:"circle"`

	// Test pattern synthesis
	Synthesis struct {
		Width      int     `yaml:"width"`
		Height     int     `yaml:"height"`
		Radius     int     `yaml:"radius"`
		KernelSize int     `yaml:"kernelSize"`
		Sigma      float64 `yaml:"sigma"`
	} `yaml:"synthesis"`

	// Radial sampling
	Profile analysis.ProfileParams `yaml:"profile"`

	// Quality metrics
	Metrics struct {
		// DefaultROI is used for CNR when the caller supplies no region
		DefaultROI imaging.ROI `yaml:"defaultROI"`
	} `yaml:"metrics"`

	// Edge enhancement
	Enhance struct {
		KernelSize int `yaml:"kernelSize"`
	} `yaml:"enhance"`

	// Transport settings
	Server struct {
		LogLevel       string        `yaml:"logLevel"`
		LogFormat      string        `yaml:"logFormat"`
		HTTPAddr       string        `yaml:"httpAddr"`
		RequestTimeout time.Duration `yaml:"requestTimeout"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	det := detection.DefaultParams()
	cfg.Edge.LowThreshold = det.LowThreshold
	cfg.Edge.HighThreshold = det.HighThreshold
	cfg.Circle.AccumulatorThreshold = det.AccumulatorThreshold
	cfg.Circle.MinDistDivisor = det.MinDistDivisor
	cfg.Circle.MinRadius = det.MinRadius
	cfg.Circle.MaxRadius = det.MaxRadius

	blur := imaging.DefaultBlur()
	cfg.Synthesis.Width = imaging.DefaultTestWidth
	cfg.Synthesis.Height = imaging.DefaultTestHeight
	cfg.Synthesis.Radius = imaging.DefaultTestRadius
	cfg.Synthesis.KernelSize = blur.KernelSize
	cfg.Synthesis.Sigma = blur.Sigma

	cfg.Profile = analysis.DefaultProfileParams()

	cfg.Metrics.DefaultROI = imaging.ROI{X: 100, Y: 100, Width: 100, Height: 100}

	cfg.Enhance.KernelSize = 3

	cfg.Server.LogLevel = "info"
	cfg.Server.LogFormat = "text"
	cfg.Server.HTTPAddr = ""
	cfg.Server.RequestTimeout = 30 * time.Second

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
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

// Validate checks every section for values the analyzer cannot run with.
func (c *Config) Validate() error {
	if err := c.DetectionParams().Validate(); err != nil {
		return fmt.Errorf("circle: %w", err)
	}
	if c.Synthesis.Width <= 0 || c.Synthesis.Height <= 0 || c.Synthesis.Radius < 0 {
		return fmt.Errorf("synthesis: invalid target %dx%d radius %d",
			c.Synthesis.Width, c.Synthesis.Height, c.Synthesis.Radius)
	}
	if err := c.BlurParams().Validate(); err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if roi := c.Metrics.DefaultROI; roi.Width <= 0 || roi.Height <= 0 || roi.X < 0 || roi.Y < 0 {
		return fmt.Errorf("metrics: default ROI %+v must have a non-negative origin and positive size", roi)
	}
	if c.Enhance.KernelSize != 3 {
		return fmt.Errorf("enhance: only a 3x3 Laplacian aperture is supported, got %d", c.Enhance.KernelSize)
	}
	switch c.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("server: log format must be text or json, got %q", c.Server.LogFormat)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server: request timeout must be non-negative, got %s", c.Server.RequestTimeout)
	}
	return nil
}

// DetectionParams converts the edge and circle sections to detector parameters.
func (c *Config) DetectionParams() detection.Params {
	return detection.Params{
		LowThreshold:         c.Edge.LowThreshold,
		HighThreshold:        c.Edge.HighThreshold,
		AccumulatorThreshold: c.Circle.AccumulatorThreshold,
		MinDistDivisor:       c.Circle.MinDistDivisor,
		MinRadius:            c.Circle.MinRadius,
		MaxRadius:            c.Circle.MaxRadius,
	}
}

// BlurParams returns the synthesis smoothing filter.
func (c *Config) BlurParams() imaging.BlurParams {
	return imaging.BlurParams{KernelSize: c.Synthesis.KernelSize, Sigma: c.Synthesis.Sigma}
}

// ProfileParams returns the radial sampling parameters.
func (c *Config) ProfileParams() analysis.ProfileParams {
	return c.Profile
}

// DefaultROI returns the region used for CNR when none is given.
func (c *Config) DefaultROI() imaging.ROI {
	return c.Metrics.DefaultROI
}
