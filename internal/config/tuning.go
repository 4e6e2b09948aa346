// Package config loads tuning and environment configuration for the
// replay decoding tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/proger/faeton/internal/dem"
)

// TuningConfig represents payload classifier tuning parameters. The
// schema is a flat JSON object so a partial file overrides only the
// fields it names.
type TuningConfig struct {
	MaxDepth       *int     `json:"max_depth,omitempty"`
	ListSample     *int     `json:"list_sample,omitempty"`
	MapEntries     *int     `json:"map_entries,omitempty"`
	PrintableRatio *float64 `json:"printable_ratio,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* methods fall back to the stock classifier limits.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxDepth != nil && *c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", *c.MaxDepth)
	}

	if c.ListSample != nil && *c.ListSample < 0 {
		return fmt.Errorf("list_sample must be non-negative, got %d", *c.ListSample)
	}

	if c.MapEntries != nil && *c.MapEntries < 0 {
		return fmt.Errorf("map_entries must be non-negative, got %d", *c.MapEntries)
	}

	if c.PrintableRatio != nil {
		if *c.PrintableRatio < 0 || *c.PrintableRatio > 1 {
			return fmt.Errorf("printable_ratio must be between 0 and 1, got %f", *c.PrintableRatio)
		}
	}

	return nil
}

// GetMaxDepth returns the max_depth value or the default.
func (c *TuningConfig) GetMaxDepth() int {
	if c.MaxDepth == nil {
		return 4 // default
	}
	return *c.MaxDepth
}

// GetListSample returns the list_sample value or the default.
func (c *TuningConfig) GetListSample() int {
	if c.ListSample == nil {
		return 8 // default
	}
	return *c.ListSample
}

// GetMapEntries returns the map_entries value or the default.
func (c *TuningConfig) GetMapEntries() int {
	if c.MapEntries == nil {
		return 16 // default
	}
	return *c.MapEntries
}

// GetPrintableRatio returns the printable_ratio value or the default.
func (c *TuningConfig) GetPrintableRatio() float64 {
	if c.PrintableRatio == nil {
		return 0.85 // default
	}
	return *c.PrintableRatio
}

// Limits converts the tuning values into classifier limits.
func (c *TuningConfig) Limits() dem.Limits {
	return dem.Limits{
		MaxDepth:       c.GetMaxDepth(),
		ListSample:     c.GetListSample(),
		MapEntries:     c.GetMapEntries(),
		PrintableRatio: c.GetPrintableRatio(),
	}
}
