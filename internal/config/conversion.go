// Package config holds the JSON-backed settings for a conversion run.
// All fields are pointers so a partial config file overrides only what it
// names; the Get* accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// maxConfigBytes caps the config file size before parsing.
const maxConfigBytes = 1 * 1024 * 1024 // 1MB

// ConversionConfig is the root configuration for converting recordings
// into training tensors. The same JSON schema is written by
// DefaultConversionConfig().Save and read back by LoadConversionConfig,
// so a generated file round-trips.
type ConversionConfig struct {
	// Grid geometry. The tensor contracts fix these values; a config file
	// may state them so a run fails fast when it was written for a
	// different sensor layout.
	CameraHeight *int `json:"camera_height,omitempty"`
	CameraWidth  *int `json:"camera_width,omitempty"`
	TargetHeight *int `json:"target_height,omitempty"`
	TargetWidth  *int `json:"target_width,omitempty"`

	// Tensor params
	SplatKernelSize  *int     `json:"splat_kernel_size,omitempty"`
	OverlapThreshold *float64 `json:"overlap_threshold,omitempty"`

	// Paths
	DatasetRoot  *string `json:"dataset_root,omitempty"`
	OutputDir    *string `json:"output_dir,omitempty"`
	ManifestPath *string `json:"manifest_path,omitempty"`
	ExportNumpy  *bool   `json:"export_numpy,omitempty"`

	// Split params
	TrainFraction      *float64 `json:"train_fraction,omitempty"`
	ValidationFraction *float64 `json:"validation_fraction,omitempty"`
	TestFraction       *float64 `json:"test_fraction,omitempty"`
	ShuffleSeed        *int64   `json:"shuffle_seed,omitempty"`

	// Debug params
	MaxFrames *int  `json:"max_frames,omitempty"` // 0 means no limit
	Debug     *bool `json:"debug,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyConversionConfig returns a ConversionConfig with all fields nil.
// Every accessor then falls back to its default.
func EmptyConversionConfig() *ConversionConfig {
	return &ConversionConfig{}
}

// DefaultConversionConfig returns a config with every field explicitly set
// to its default value. Saving it produces a complete, editable file.
func DefaultConversionConfig() *ConversionConfig {
	return &ConversionConfig{
		CameraHeight:       ptrInt(tensorize.GridHeight),
		CameraWidth:        ptrInt(tensorize.GridWidth),
		TargetHeight:       ptrInt(tensorize.TargetHeight),
		TargetWidth:        ptrInt(tensorize.TargetWidth),
		SplatKernelSize:    ptrInt(tensorize.DefaultSplatKernel),
		OverlapThreshold:   ptrFloat64(tensorize.DefaultOverlapThreshold),
		DatasetRoot:        ptrString("data"),
		OutputDir:          ptrString("out"),
		ManifestPath:       ptrString(""),
		ExportNumpy:        ptrBool(false),
		TrainFraction:      ptrFloat64(0.8),
		ValidationFraction: ptrFloat64(0.1),
		TestFraction:       ptrFloat64(0.1),
		ShuffleSeed:        ptrInt64(123),
		MaxFrames:          ptrInt(0),
		Debug:              ptrBool(false),
	}
}

// LoadConversionConfig loads a config from a JSON file. The file must
// have a .json extension and be under the size cap; the parsed config is
// validated before being returned. Fields omitted from the JSON keep
// their defaults, so partial configs are safe.
func LoadConversionConfig(fs fsutil.FileSystem, path string) (*ConversionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigBytes)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConversionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *ConversionConfig) Save(fs fsutil.FileSystem, path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := fs.WriteFile(cleanPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are usable.
func (c *ConversionConfig) Validate() error {
	if c.CameraHeight != nil && *c.CameraHeight != tensorize.GridHeight {
		return fmt.Errorf("camera_height must be %d, got %d", tensorize.GridHeight, *c.CameraHeight)
	}
	if c.CameraWidth != nil && *c.CameraWidth != tensorize.GridWidth {
		return fmt.Errorf("camera_width must be %d, got %d", tensorize.GridWidth, *c.CameraWidth)
	}
	if c.TargetHeight != nil && *c.TargetHeight != tensorize.TargetHeight {
		return fmt.Errorf("target_height must be %d, got %d", tensorize.TargetHeight, *c.TargetHeight)
	}
	if c.TargetWidth != nil && *c.TargetWidth != tensorize.TargetWidth {
		return fmt.Errorf("target_width must be %d, got %d", tensorize.TargetWidth, *c.TargetWidth)
	}

	if c.SplatKernelSize != nil {
		if *c.SplatKernelSize < 1 || *c.SplatKernelSize%2 == 0 {
			return fmt.Errorf("splat_kernel_size must be a positive odd number, got %d", *c.SplatKernelSize)
		}
	}

	if c.OverlapThreshold != nil {
		if *c.OverlapThreshold <= 0 || *c.OverlapThreshold > 1 {
			return fmt.Errorf("overlap_threshold must be in (0, 1], got %f", *c.OverlapThreshold)
		}
	}

	for name, frac := range map[string]*float64{
		"train_fraction":      c.TrainFraction,
		"validation_fraction": c.ValidationFraction,
		"test_fraction":       c.TestFraction,
	} {
		if frac != nil && (*frac < 0 || *frac > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *frac)
		}
	}
	sum := c.GetTrainFraction() + c.GetValidationFraction() + c.GetTestFraction()
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("split fractions must sum to 1, got %f", sum)
	}

	if c.MaxFrames != nil && *c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be non-negative, got %d", *c.MaxFrames)
	}

	return nil
}

// GetCameraHeight returns the camera grid height in pixels.
func (c *ConversionConfig) GetCameraHeight() int {
	if c.CameraHeight == nil {
		return tensorize.GridHeight
	}
	return *c.CameraHeight
}

// GetCameraWidth returns the camera grid width in pixels.
func (c *ConversionConfig) GetCameraWidth() int {
	if c.CameraWidth == nil {
		return tensorize.GridWidth
	}
	return *c.CameraWidth
}

// GetTargetHeight returns the training tensor height.
func (c *ConversionConfig) GetTargetHeight() int {
	if c.TargetHeight == nil {
		return tensorize.TargetHeight
	}
	return *c.TargetHeight
}

// GetTargetWidth returns the training tensor width.
func (c *ConversionConfig) GetTargetWidth() int {
	if c.TargetWidth == nil {
		return tensorize.TargetWidth
	}
	return *c.TargetWidth
}

// GetSplatKernelSize returns the splat_kernel_size value or the default.
func (c *ConversionConfig) GetSplatKernelSize() int {
	if c.SplatKernelSize == nil {
		return tensorize.DefaultSplatKernel
	}
	return *c.SplatKernelSize
}

// GetOverlapThreshold returns the overlap_threshold value or the default.
func (c *ConversionConfig) GetOverlapThreshold() float64 {
	if c.OverlapThreshold == nil {
		return tensorize.DefaultOverlapThreshold
	}
	return *c.OverlapThreshold
}

// GetDatasetRoot returns the dataset_root value or the default.
func (c *ConversionConfig) GetDatasetRoot() string {
	if c.DatasetRoot == nil || *c.DatasetRoot == "" {
		return "data"
	}
	return *c.DatasetRoot
}

// GetOutputDir returns the output_dir value or the default.
func (c *ConversionConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "out"
	}
	return *c.OutputDir
}

// GetManifestPath returns the manifest_path value, defaulting to
// manifest.db inside the output directory.
func (c *ConversionConfig) GetManifestPath() string {
	if c.ManifestPath == nil || *c.ManifestPath == "" {
		return filepath.Join(c.GetOutputDir(), "manifest.db")
	}
	return *c.ManifestPath
}

// GetExportNumpy returns the export_numpy value or the default.
func (c *ConversionConfig) GetExportNumpy() bool {
	if c.ExportNumpy == nil {
		return false
	}
	return *c.ExportNumpy
}

// GetTrainFraction returns the train_fraction value or the default.
func (c *ConversionConfig) GetTrainFraction() float64 {
	if c.TrainFraction == nil {
		return 0.8
	}
	return *c.TrainFraction
}

// GetValidationFraction returns the validation_fraction value or the default.
func (c *ConversionConfig) GetValidationFraction() float64 {
	if c.ValidationFraction == nil {
		return 0.1
	}
	return *c.ValidationFraction
}

// GetTestFraction returns the test_fraction value or the default.
func (c *ConversionConfig) GetTestFraction() float64 {
	if c.TestFraction == nil {
		return 0.1
	}
	return *c.TestFraction
}

// GetShuffleSeed returns the shuffle_seed value or the default.
func (c *ConversionConfig) GetShuffleSeed() int64 {
	if c.ShuffleSeed == nil {
		return 123
	}
	return *c.ShuffleSeed
}

// GetMaxFrames returns the max_frames value or the default. Zero means
// convert every frame.
func (c *ConversionConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 0
	}
	return *c.MaxFrames
}

// GetDebug returns the debug value or the default.
func (c *ConversionConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}
