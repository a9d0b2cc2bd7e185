// Package manifest persists conversion runs and their frames in SQLite.
// Every converted frame gets a row recording its counts and artifact
// paths, so reports and dataset audits run off SQL instead of directory
// walks. The Store implements extract.Recorder.
package manifest

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tensor.report/internal/extract"
	"github.com/banshee-data/tensor.report/internal/monitoring"
	"github.com/banshee-data/tensor.report/internal/timeutil"
)

// schema.sql defines the conversion_runs and frames tables.
//
//go:embed schema.sql
var schemaSQL string

// dbPragmas are applied to every opened database.
var dbPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Store provides persistence for conversion runs.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens or creates the manifest database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest database: %w", err)
	}

	for _, pragma := range dbPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize manifest schema: %w", err)
	}

	monitoring.Logf("manifest: initialized schema at %s", path)
	return &Store{db: db, clock: timeutil.RealClock{}}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// CreateRun inserts a new running conversion run and returns its id.
func (s *Store) CreateRun(recording string, shuffleSeed int64, splatKernel int) (string, error) {
	runID := uuid.New().String()
	query := `
		INSERT INTO conversion_runs (run_id, recording, status, shuffle_seed, splat_kernel, started_at)
		VALUES (?, ?, 'running', ?, ?, ?)
	`
	err := retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(query, runID, recording, shuffleSeed, splatKernel,
			s.clock.Now().UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("inserting run for %s: %w", recording, err)
	}
	return runID, nil
}

// InsertFrame records one converted frame of a run.
func (s *Store) InsertFrame(runID string, row extract.FrameRecord) error {
	query := `
		INSERT INTO frames (
			run_id, recording, frame_index, timestamp_nanos, point_count,
			vehicles, pedestrians, cyclists, split,
			image_path, lidar_path, heat_map_path, labels_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(query,
			runID,
			row.Recording,
			row.FrameIndex,
			row.TimestampNanos,
			row.PointCount,
			row.Vehicles,
			row.Pedestrians,
			row.Cyclists,
			extract.SplitTrain,
			row.Paths.Image,
			row.Paths.Lidar,
			row.Paths.HeatMap,
			row.Paths.Labels,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting frame %d of run %s: %w", row.FrameIndex, runID, err)
	}
	return nil
}

// FinishRun closes a run with the given status.
func (s *Store) FinishRun(runID string, status string) error {
	query := `UPDATE conversion_runs SET status = ?, finished_at = ? WHERE run_id = ?`
	err := retryOnBusy(s.clock, func() error {
		res, err := s.db.Exec(query, status, s.clock.Now().UTC().Format(time.RFC3339), runID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// UpdateSplit moves one frame of a run to a new split.
func (s *Store) UpdateSplit(runID string, frameIndex uint32, split string) error {
	query := `UPDATE frames SET split = ? WHERE run_id = ? AND frame_index = ?`
	err := retryOnBusy(s.clock, func() error {
		res, err := s.db.Exec(query, split, runID, frameIndex)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("frame %d of run %s not found", frameIndex, runID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating split for frame %d of run %s: %w", frameIndex, runID, err)
	}
	return nil
}

// RunRecord is one persisted conversion run.
type RunRecord struct {
	RunID       string
	Recording   string
	Status      string
	ShuffleSeed int64
	SplatKernel int
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Run returns one conversion run by id.
func (s *Store) Run(runID string) (*RunRecord, error) {
	query := `
		SELECT run_id, recording, status, shuffle_seed, splat_kernel, started_at, finished_at
		FROM conversion_runs WHERE run_id = ?
	`
	var rec RunRecord
	var startedAt string
	var finishedAt sql.NullString
	err := s.db.QueryRow(query, runID).Scan(
		&rec.RunID, &rec.Recording, &rec.Status,
		&rec.ShuffleSeed, &rec.SplatKernel, &startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}

	rec.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at of run %s: %w", runID, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at of run %s: %w", runID, err)
		}
		rec.FinishedAt = &t
	}
	return &rec, nil
}

// FrameStats is the per-frame slice of a run used by reports.
type FrameStats struct {
	FrameIndex     uint32
	TimestampNanos int64
	PointCount     int
	Vehicles       int
	Pedestrians    int
	Cyclists       int
	Split          string
}

// FrameStats returns every frame of a run in frame order.
func (s *Store) FrameStats(runID string) ([]FrameStats, error) {
	query := `
		SELECT frame_index, timestamp_nanos, point_count, vehicles, pedestrians, cyclists, split
		FROM frames WHERE run_id = ? ORDER BY frame_index
	`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying frames of run %s: %w", runID, err)
	}
	defer rows.Close()

	var stats []FrameStats
	for rows.Next() {
		var fs FrameStats
		if err := rows.Scan(&fs.FrameIndex, &fs.TimestampNanos, &fs.PointCount,
			&fs.Vehicles, &fs.Pedestrians, &fs.Cyclists, &fs.Split); err != nil {
			return nil, fmt.Errorf("scanning frame of run %s: %w", runID, err)
		}
		stats = append(stats, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames of run %s: %w", runID, err)
	}
	return stats, nil
}

// RunSummary aggregates one run for reporting.
type RunSummary struct {
	RunID       string
	Recording   string
	Status      string
	Frames      int
	Points      int
	Vehicles    int
	Pedestrians int
	Cyclists    int
	SplitCounts map[string]int
}

// Summarize aggregates a run's frames into totals and split counts.
func (s *Store) Summarize(runID string) (*RunSummary, error) {
	run, err := s.Run(runID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:       run.RunID,
		Recording:   run.Recording,
		Status:      run.Status,
		SplitCounts: make(map[string]int),
	}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(point_count), 0),
		       COALESCE(SUM(vehicles), 0),
		       COALESCE(SUM(pedestrians), 0),
		       COALESCE(SUM(cyclists), 0)
		FROM frames WHERE run_id = ?
	`
	err = s.db.QueryRow(query, runID).Scan(
		&summary.Frames, &summary.Points,
		&summary.Vehicles, &summary.Pedestrians, &summary.Cyclists)
	if err != nil {
		return nil, fmt.Errorf("aggregating run %s: %w", runID, err)
	}

	rows, err := s.db.Query(`SELECT split, COUNT(*) FROM frames WHERE run_id = ? GROUP BY split`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting splits of run %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var split string
		var count int
		if err := rows.Scan(&split, &count); err != nil {
			return nil, fmt.Errorf("scanning split count of run %s: %w", runID, err)
		}
		summary.SplitCounts[split] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating split counts of run %s: %w", runID, err)
	}
	return summary, nil
}
