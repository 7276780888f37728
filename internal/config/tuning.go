// Package config loads tool tuning parameters from JSON. Fields are
// pointers so a partial file only overrides what it names; getters supply
// defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig is the root configuration for the point-cloud tools. The
// schema is shared between CLI -config files and the server so the same JSON
// works in both places.
type TuningConfig struct {
	// MaxPoints caps the point count accepted before allocation.
	MaxPoints *int `json:"max_points,omitempty"`

	// SmoothParallelism caps worker goroutines in the smoother's per-round
	// scan. 0 or 1 is sequential; -1 uses all CPUs.
	SmoothParallelism *int `json:"smooth_parallelism,omitempty"`

	// MaxRequestBytes bounds the body size the server will read.
	MaxRequestBytes *int64 `json:"max_request_bytes,omitempty"`

	// ListenAddr is the server bind address.
	ListenAddr *string `json:"listen_addr,omitempty"`

	// VizMaxPoints caps how many points a debug scatter page renders.
	VizMaxPoints *int `json:"viz_max_points,omitempty"`
}

// Defaults.
const (
	DefaultMaxPoints         = 100_000_000
	DefaultSmoothParallelism = 1
	DefaultMaxRequestBytes   = 512 << 20
	DefaultListenAddr        = ":8077"
	DefaultVizMaxPoints      = 8000
)

// EmptyTuningConfig returns a config with every field unset, so getters
// report defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must have
// a .json extension and the file must be under 1MB. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Validate rejects values no deployment can mean.
func (c *TuningConfig) Validate() error {
	if c.MaxPoints != nil && *c.MaxPoints <= 0 {
		return fmt.Errorf("max_points must be positive, got %d", *c.MaxPoints)
	}
	if c.MaxRequestBytes != nil && *c.MaxRequestBytes <= 0 {
		return fmt.Errorf("max_request_bytes must be positive, got %d", *c.MaxRequestBytes)
	}
	if c.VizMaxPoints != nil && *c.VizMaxPoints < 100 {
		return fmt.Errorf("viz_max_points must be at least 100, got %d", *c.VizMaxPoints)
	}
	return nil
}

// GetMaxPoints returns the point-count limit.
func (c *TuningConfig) GetMaxPoints() int {
	if c.MaxPoints != nil {
		return *c.MaxPoints
	}
	return DefaultMaxPoints
}

// GetSmoothParallelism returns the smoother worker cap.
func (c *TuningConfig) GetSmoothParallelism() int {
	if c.SmoothParallelism != nil {
		return *c.SmoothParallelism
	}
	return DefaultSmoothParallelism
}

// GetMaxRequestBytes returns the server body-size limit.
func (c *TuningConfig) GetMaxRequestBytes() int64 {
	if c.MaxRequestBytes != nil {
		return *c.MaxRequestBytes
	}
	return DefaultMaxRequestBytes
}

// GetListenAddr returns the server bind address.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr != nil {
		return *c.ListenAddr
	}
	return DefaultListenAddr
}

// GetVizMaxPoints returns the scatter-page point cap.
func (c *TuningConfig) GetVizMaxPoints() int {
	if c.VizMaxPoints != nil {
		return *c.VizMaxPoints
	}
	return DefaultVizMaxPoints
}
