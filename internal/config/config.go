// Package config loads application configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime tuning for the viewport and the dataset location.
// Missing fields fall back to defaults; Validate clamps nonsense values.
type Config struct {
	DatasetRoot string `yaml:"dataset_root"`

	// Viewport tuning
	PanSpeed      float64 `yaml:"pan_speed"`       // screen pixels per frame while a key is held
	MinZoom       float64 `yaml:"min_zoom"`
	MaxZoom       float64 `yaml:"max_zoom"`
	WheelZoomStep float64 `yaml:"wheel_zoom_step"` // wheel zoom factor is 1 ± step
	KeyZoomFactor float64 `yaml:"key_zoom_factor"`
	FitMargin     float64 `yaml:"fit_margin"`

	Debug bool `yaml:"debug"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		DatasetRoot:   "dataset",
		PanSpeed:      10,
		MinZoom:       0.05,
		MaxZoom:       10,
		WheelZoomStep: 0.1,
		KeyZoomFactor: 1.2,
		FitMargin:     0.9,
	}
}

// Validate clamps values to safe ranges.
func (c *Config) Validate() error {
	if c.DatasetRoot == "" {
		c.DatasetRoot = "dataset"
	}
	if c.PanSpeed <= 0 {
		c.PanSpeed = 10
	}
	if c.MinZoom <= 0 {
		c.MinZoom = 0.05
	}
	if c.MaxZoom <= c.MinZoom {
		c.MaxZoom = c.MinZoom * 200
	}
	if c.WheelZoomStep <= 0 || c.WheelZoomStep >= 1 {
		c.WheelZoomStep = 0.1
	}
	if c.KeyZoomFactor <= 1 {
		c.KeyZoomFactor = 1.2
	}
	if c.FitMargin <= 0 || c.FitMargin > 1 {
		c.FitMargin = 0.9
	}
	return nil
}

// Load reads configuration from path. A missing file yields defaults; a
// malformed file returns defaults along with the error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("parsing %s: %w", path, err)
	}
	_ = cfg.Validate()
	return cfg, nil
}
