package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for prediction tuning
// parameters. Fields are pointers so that a partial JSON file only
// overrides what it names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Acceleration bounds applied after damping (m/s²)
	MinAcceleration *float64 `json:"min_acceleration,omitempty"`
	MaxAcceleration *float64 `json:"max_acceleration,omitempty"`

	// Damping sigma for the finite-difference acceleration estimate
	DampingSigma *float64 `json:"damping_sigma,omitempty"`

	// Timestamp comparison tolerance (seconds)
	TimestampEpsilon *float64 `json:"timestamp_epsilon,omitempty"`

	// Feature history cap per obstacle; 0 or unset means unbounded
	MaxHistorySize *int `json:"max_history_size,omitempty"`

	// Container params
	MaxObstacles *int `json:"max_obstacles,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
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

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinAcceleration != nil && c.MaxAcceleration != nil {
		if *c.MinAcceleration > *c.MaxAcceleration {
			return fmt.Errorf("min_acceleration (%f) must not exceed max_acceleration (%f)",
				*c.MinAcceleration, *c.MaxAcceleration)
		}
	}

	if c.DampingSigma != nil && *c.DampingSigma <= 0 {
		return fmt.Errorf("damping_sigma must be positive, got %f", *c.DampingSigma)
	}

	if c.TimestampEpsilon != nil && *c.TimestampEpsilon < 0 {
		return fmt.Errorf("timestamp_epsilon must be non-negative, got %f", *c.TimestampEpsilon)
	}

	if c.MaxHistorySize != nil && *c.MaxHistorySize < 0 {
		return fmt.Errorf("max_history_size must be non-negative, got %d", *c.MaxHistorySize)
	}

	if c.MaxObstacles != nil && *c.MaxObstacles < 0 {
		return fmt.Errorf("max_obstacles must be non-negative, got %d", *c.MaxObstacles)
	}

	return nil
}

// GetMinAcceleration returns the min_acceleration value or the default.
func (c *TuningConfig) GetMinAcceleration() float64 {
	if c.MinAcceleration == nil {
		return -10.0
	}
	return *c.MinAcceleration
}

// GetMaxAcceleration returns the max_acceleration value or the default.
func (c *TuningConfig) GetMaxAcceleration() float64 {
	if c.MaxAcceleration == nil {
		return 10.0
	}
	return *c.MaxAcceleration
}

// GetDampingSigma returns the damping_sigma value or the default.
func (c *TuningConfig) GetDampingSigma() float64 {
	if c.DampingSigma == nil {
		return 0.001
	}
	return *c.DampingSigma
}

// GetTimestampEpsilon returns the timestamp_epsilon value or the default.
func (c *TuningConfig) GetTimestampEpsilon() float64 {
	if c.TimestampEpsilon == nil {
		return 1e-9
	}
	return *c.TimestampEpsilon
}

// GetMaxHistorySize returns the max_history_size value or the default.
// Zero means the feature history is unbounded.
func (c *TuningConfig) GetMaxHistorySize() int {
	if c.MaxHistorySize == nil {
		return 0
	}
	return *c.MaxHistorySize
}

// GetMaxObstacles returns the max_obstacles value or the default.
func (c *TuningConfig) GetMaxObstacles() int {
	if c.MaxObstacles == nil {
		return 500
	}
	return *c.MaxObstacles
}
