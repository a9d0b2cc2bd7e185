// Command tensorize converts a drive recording into training tensors.
//
// Every frame of the input recording is turned into an artifact bundle
// (camera tensor, lidar tensor, heat maps, labels) under the output
// directory, the run is recorded in the manifest database, frames are
// redistributed into train/val/test splits and a static HTML report is
// written next to the artifacts. Without -in the converter runs off the
// synthetic generator, which is handy for smoke tests and demos.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/tensor.report/internal/config"
	"github.com/banshee-data/tensor.report/internal/extract"
	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/manifest"
	"github.com/banshee-data/tensor.report/internal/monitoring"
	"github.com/banshee-data/tensor.report/internal/record"
	"github.com/banshee-data/tensor.report/internal/report"
	"github.com/banshee-data/tensor.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a conversion config JSON file")
	writeConfig = flag.String("write-config", "", "Write the default config to this path and exit")
	input       = flag.String("in", "", "Path to a .drec recording (synthetic frames when empty)")
	outputDir   = flag.String("out", "", "Output directory (overrides config)")
	maxFrames   = flag.Int("max-frames", 0, "Stop after this many frames (0 = no limit)")
	exportNpy   = flag.Bool("npy", false, "Also export .npy mirrors of every tensor")
	debugMode   = flag.Bool("debug", false, "Convert a single frame with per-frame logging and exit")
	seed        = flag.Int64("seed", 0, "Shuffle seed override for split assignment (0 = config value)")
	valFrac     = flag.Float64("val-fraction", -1, "Validation split fraction override (train absorbs the difference)")
	testFrac    = flag.Float64("test-fraction", -1, "Test split fraction override (train absorbs the difference)")
	synthFrames = flag.Int("synthetic-frames", 50, "Frame count when running off the synthetic generator")
	skipReport  = flag.Bool("no-report", false, "Skip writing the HTML run report")
)

func main() {
	flag.Parse()
	log.Printf("tensorize %s", version.String())

	fs := fsutil.OSFileSystem{}

	if *writeConfig != "" {
		cfg := config.DefaultConversionConfig()
		if err := cfg.Save(fs, *writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("✓ Wrote default config: %s", *writeConfig)
		return
	}

	cfg := config.DefaultConversionConfig()
	if *configPath != "" {
		loaded, err := config.LoadConversionConfig(fs, *configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	// Flags override the config file where set.
	if *outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if *maxFrames > 0 {
		cfg.MaxFrames = maxFrames
	}
	if *exportNpy {
		cfg.ExportNumpy = exportNpy
	}
	if *debugMode {
		cfg.Debug = debugMode
	}
	if *seed != 0 {
		cfg.ShuffleSeed = seed
	}
	if *valFrac >= 0 {
		cfg.ValidationFraction = valFrac
	}
	if *testFrac >= 0 {
		cfg.TestFraction = testFrac
	}
	if *valFrac >= 0 || *testFrac >= 0 {
		train := 1 - cfg.GetValidationFraction() - cfg.GetTestFraction()
		cfg.TrainFraction = &train
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	monitoring.SetDebug(cfg.GetDebug())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src extract.FrameSource
	if *input != "" {
		reader, err := record.Open(fs, *input)
		if err != nil {
			log.Fatalf("Failed to open recording %s: %v", *input, err)
		}
		defer reader.Close()
		src = reader
	} else {
		// The synthetic generator never ends, so bound it.
		if cfg.GetMaxFrames() == 0 && !cfg.GetDebug() {
			cfg.MaxFrames = synthFrames
		}
		src = record.NewSynthetic(record.SyntheticConfig{Seed: cfg.GetShuffleSeed()})
	}

	manifestPath := cfg.GetManifestPath()
	if err := fs.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		log.Fatalf("Failed to create manifest directory: %v", err)
	}
	store, err := manifest.Open(manifestPath)
	if err != nil {
		log.Fatalf("Failed to open manifest database: %v", err)
	}
	defer store.Close()

	extractor := extract.New(fs, cfg)
	extractor.SetRecorder(store)

	summary, err := extractor.Run(ctx, src)
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	// A debug run converts one frame for inspection; leave it in train/
	// rather than shuffling it into val or test.
	if !cfg.GetDebug() {
		assignments, err := extract.Redistribute(fs, summary.OutputDir, cfg.GetShuffleSeed(),
			cfg.GetValidationFraction(), cfg.GetTestFraction())
		if err != nil {
			log.Fatalf("Split redistribution failed: %v", err)
		}
		for _, a := range assignments {
			if a.Split == extract.SplitTrain || a.Recording != summary.Recording {
				continue
			}
			if err := store.UpdateSplit(summary.RunID, a.FrameIndex, a.Split); err != nil {
				log.Fatalf("Failed to record split assignment: %v", err)
			}
		}
	}

	if !*skipReport {
		runSummary, err := store.Summarize(summary.RunID)
		if err != nil {
			log.Fatalf("Failed to summarize run: %v", err)
		}
		stats, err := store.FrameStats(summary.RunID)
		if err != nil {
			log.Fatalf("Failed to load frame stats: %v", err)
		}
		reportPath := filepath.Join(summary.OutputDir, "report.html")
		if err := report.Write(fs, reportPath, runSummary, stats); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	}

	log.Printf("✓ Converted %d frames of %s (%d points, %d/%d/%d veh/ped/cyc): %s",
		summary.Frames, summary.Recording, summary.Points,
		summary.Vehicles, summary.Pedestrians, summary.Cyclists, summary.OutputDir)
}
