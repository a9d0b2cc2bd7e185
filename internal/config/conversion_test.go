package config

import (
	"strings"
	"testing"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/tensorize"
)

func TestDefaultConversionConfig(t *testing.T) {
	cfg := DefaultConversionConfig()

	if cfg.SplatKernelSize == nil || *cfg.SplatKernelSize != 5 {
		t.Errorf("expected SplatKernelSize 5, got %v", cfg.SplatKernelSize)
	}
	if cfg.OverlapThreshold == nil || *cfg.OverlapThreshold != 0.7 {
		t.Errorf("expected OverlapThreshold 0.7, got %v", cfg.OverlapThreshold)
	}
	if cfg.ShuffleSeed == nil || *cfg.ShuffleSeed != 123 {
		t.Errorf("expected ShuffleSeed 123, got %v", cfg.ShuffleSeed)
	}
	if cfg.TrainFraction == nil || *cfg.TrainFraction != 0.8 {
		t.Errorf("expected TrainFraction 0.8, got %v", cfg.TrainFraction)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEmptyConfigAccessorDefaults(t *testing.T) {
	cfg := EmptyConversionConfig()

	if got := cfg.GetCameraHeight(); got != tensorize.GridHeight {
		t.Errorf("GetCameraHeight() = %d, want %d", got, tensorize.GridHeight)
	}
	if got := cfg.GetCameraWidth(); got != tensorize.GridWidth {
		t.Errorf("GetCameraWidth() = %d, want %d", got, tensorize.GridWidth)
	}
	if got := cfg.GetTargetHeight(); got != 128 {
		t.Errorf("GetTargetHeight() = %d, want 128", got)
	}
	if got := cfg.GetTargetWidth(); got != 192 {
		t.Errorf("GetTargetWidth() = %d, want 192", got)
	}
	if got := cfg.GetSplatKernelSize(); got != 5 {
		t.Errorf("GetSplatKernelSize() = %d, want 5", got)
	}
	if got := cfg.GetOverlapThreshold(); got != 0.7 {
		t.Errorf("GetOverlapThreshold() = %f, want 0.7", got)
	}
	if got := cfg.GetOutputDir(); got != "out" {
		t.Errorf("GetOutputDir() = %q, want \"out\"", got)
	}
	if got := cfg.GetManifestPath(); got != "out/manifest.db" {
		t.Errorf("GetManifestPath() = %q, want \"out/manifest.db\"", got)
	}
	if got := cfg.GetShuffleSeed(); got != 123 {
		t.Errorf("GetShuffleSeed() = %d, want 123", got)
	}
	if got := cfg.GetTrainFraction() + cfg.GetValidationFraction() + cfg.GetTestFraction(); got != 1.0 {
		t.Errorf("default split fractions sum to %f, want 1.0", got)
	}
	if cfg.GetMaxFrames() != 0 {
		t.Errorf("GetMaxFrames() = %d, want 0", cfg.GetMaxFrames())
	}
	if cfg.GetDebug() {
		t.Error("GetDebug() should default to false")
	}
	if cfg.GetExportNumpy() {
		t.Error("GetExportNumpy() should default to false")
	}
}

func TestLoadConversionConfig(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testJSON := `{
  "splat_kernel_size": 7,
  "overlap_threshold": 0.5,
  "output_dir": "tensors",
  "train_fraction": 0.6,
  "validation_fraction": 0.2,
  "test_fraction": 0.2,
  "max_frames": 10,
  "debug": true
}`
	if err := mfs.WriteFile("run.json", []byte(testJSON), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConversionConfig(mfs, "run.json")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.GetSplatKernelSize() != 7 {
		t.Errorf("GetSplatKernelSize() = %d, want 7", cfg.GetSplatKernelSize())
	}
	if cfg.GetOverlapThreshold() != 0.5 {
		t.Errorf("GetOverlapThreshold() = %f, want 0.5", cfg.GetOverlapThreshold())
	}
	if cfg.GetOutputDir() != "tensors" {
		t.Errorf("GetOutputDir() = %q, want \"tensors\"", cfg.GetOutputDir())
	}
	if cfg.GetManifestPath() != "tensors/manifest.db" {
		t.Errorf("GetManifestPath() = %q, want \"tensors/manifest.db\"", cfg.GetManifestPath())
	}
	if cfg.GetMaxFrames() != 10 {
		t.Errorf("GetMaxFrames() = %d, want 10", cfg.GetMaxFrames())
	}
	if !cfg.GetDebug() {
		t.Error("GetDebug() should be true")
	}

	// Fields absent from the JSON keep their defaults.
	if cfg.GetShuffleSeed() != 123 {
		t.Errorf("GetShuffleSeed() = %d, want default 123", cfg.GetShuffleSeed())
	}
}

func TestLoadConversionConfigErrors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	if _, err := LoadConversionConfig(mfs, "missing.json"); err == nil {
		t.Error("expected error for missing file")
	}

	if err := mfs.WriteFile("config.yaml", []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConversionConfig(mfs, "config.yaml"); err == nil || !strings.Contains(err.Error(), ".json extension") {
		t.Errorf("expected extension error, got %v", err)
	}

	if err := mfs.WriteFile("broken.json", []byte(`{"splat_kernel_size": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConversionConfig(mfs, "broken.json"); err == nil {
		t.Error("expected error for malformed JSON")
	}

	big := make([]byte, maxConfigBytes+1)
	if err := mfs.WriteFile("huge.json", big, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConversionConfig(mfs, "huge.json"); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size cap error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	cfg := DefaultConversionConfig()
	cfg.OutputDir = ptrString("custom_out")
	cfg.MaxFrames = ptrInt(25)

	if err := cfg.Save(mfs, "conf/run.json"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConversionConfig(mfs, "conf/run.json")
	if err != nil {
		t.Fatalf("load after save failed: %v", err)
	}
	if loaded.GetOutputDir() != "custom_out" {
		t.Errorf("GetOutputDir() = %q, want \"custom_out\"", loaded.GetOutputDir())
	}
	if loaded.GetMaxFrames() != 25 {
		t.Errorf("GetMaxFrames() = %d, want 25", loaded.GetMaxFrames())
	}
	if loaded.GetSplatKernelSize() != 5 {
		t.Errorf("GetSplatKernelSize() = %d, want 5", loaded.GetSplatKernelSize())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ConversionConfig
		wantErr string
	}{
		{
			name: "valid config",
			cfg:  DefaultConversionConfig(),
		},
		{
			name: "empty config is valid",
			cfg:  EmptyConversionConfig(),
		},
		{
			name:    "wrong camera height",
			cfg:     &ConversionConfig{CameraHeight: ptrInt(720)},
			wantErr: "camera_height",
		},
		{
			name:    "wrong target width",
			cfg:     &ConversionConfig{TargetWidth: ptrInt(200)},
			wantErr: "target_width",
		},
		{
			name:    "even splat kernel",
			cfg:     &ConversionConfig{SplatKernelSize: ptrInt(4)},
			wantErr: "splat_kernel_size",
		},
		{
			name:    "zero splat kernel",
			cfg:     &ConversionConfig{SplatKernelSize: ptrInt(0)},
			wantErr: "splat_kernel_size",
		},
		{
			name: "odd splat kernel is valid",
			cfg:  &ConversionConfig{SplatKernelSize: ptrInt(9)},
		},
		{
			name:    "threshold above one",
			cfg:     &ConversionConfig{OverlapThreshold: ptrFloat64(1.5)},
			wantErr: "overlap_threshold",
		},
		{
			name:    "threshold zero",
			cfg:     &ConversionConfig{OverlapThreshold: ptrFloat64(0)},
			wantErr: "overlap_threshold",
		},
		{
			name:    "negative fraction",
			cfg:     &ConversionConfig{TrainFraction: ptrFloat64(-0.1)},
			wantErr: "train_fraction",
		},
		{
			name:    "fractions do not sum to one",
			cfg:     &ConversionConfig{TrainFraction: ptrFloat64(0.5)},
			wantErr: "sum to 1",
		},
		{
			name: "rebalanced fractions are valid",
			cfg: &ConversionConfig{
				TrainFraction:      ptrFloat64(0.6),
				ValidationFraction: ptrFloat64(0.3),
				TestFraction:       ptrFloat64(0.1),
			},
		},
		{
			name:    "negative max frames",
			cfg:     &ConversionConfig{MaxFrames: ptrInt(-1)},
			wantErr: "max_frames",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
