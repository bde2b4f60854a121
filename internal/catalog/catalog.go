// Package catalog records conversion runs and per-scene statistics in a
// SQLite database so that datasets can be traced back to their inputs.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/nusconv/internal/convert"
	"github.com/banshee-data/nusconv/internal/timeutil"
	"github.com/banshee-data/nusconv/internal/version"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("conversion run not found")

// Catalog is a handle to the run catalog database.
type Catalog struct {
	db    *sql.DB
	path  string
	clock timeutil.Clock
}

// Open opens (creating if needed) the catalog at path and migrates it to
// the latest schema.
func Open(path string, clock timeutil.Clock) (*Catalog, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single connection so the pragmas below hold for every statement
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	c := &Catalog{db: db, path: path, clock: clock}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for read-only tooling.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// RunParams describe the inputs of a run.
type RunParams struct {
	AnnotationsDir string `json:"annotations_dir"`
	SensorsDir     string `json:"sensors_dir"`
	OutputDir      string `json:"output_dir"`
	DatasetVersion string `json:"dataset_version"`
	IntensityScale string `json:"intensity_scale"`
	DryRun         bool   `json:"dry_run"`
}

// Run is one recorded conversion.
type Run struct {
	ID         string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Version    string     `json:"version"`
	RunParams

	Logs               int `json:"logs"`
	Scenes             int `json:"scenes"`
	Frames             int `json:"frames"`
	Instances          int `json:"instances"`
	Annotations        int `json:"annotations"`
	RadarFrames        int `json:"radar_frames"`
	SkippedFirstFrames int `json:"skipped_first_frames"`
	TruncatedScenes    int `json:"truncated_scenes"`
	Payloads           int `json:"payloads"`
}

// SceneRow is the stored form of convert.SceneStats.
type SceneRow struct {
	Log          string `json:"log"`
	Team         string `json:"team"`
	Scene        string `json:"scene"`
	InputFrames  int    `json:"input_frames"`
	Samples      int    `json:"samples"`
	Annotations  int    `json:"annotations"`
	Occluded     int    `json:"occluded"`
	Instances    int    `json:"instances"`
	RadarFrames  int    `json:"radar_frames"`
	SkippedFirst bool   `json:"skipped_first"`
	Truncated    bool   `json:"truncated"`
	MaxGap       int64  `json:"max_gap"`
	DurationMs   int64  `json:"duration_ms"`
}

// BeginRun records the start of a run and returns its id.
func (c *Catalog) BeginRun(p RunParams) (string, error) {
	id := uuid.New().String()
	_, err := c.db.Exec(`
		INSERT INTO conversion_runs (
			run_id, started_at, status, version, annotations_dir, sensors_dir,
			output_dir, dataset_version, intensity_scale, dry_run
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.clock.Now().UTC().Format(timeLayout), StatusRunning, version.String(),
		p.AnnotationsDir, p.SensorsDir, p.OutputDir, p.DatasetVersion, p.IntensityScale, p.DryRun,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run. A nil summary with a non-nil
// runErr marks the run failed without statistics.
func (c *Catalog) FinishRun(id string, sum *convert.Summary, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	if sum == nil {
		sum = &convert.Summary{}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE conversion_runs SET
			finished_at = ?, status = ?, error = ?,
			logs = ?, scenes = ?, frames = ?, instances = ?, annotations = ?,
			radar_frames = ?, skipped_first_frames = ?, truncated_scenes = ?, payloads = ?
		WHERE run_id = ?`,
		c.clock.Now().UTC().Format(timeLayout), status, msg,
		sum.Logs, sum.Scenes, sum.Frames, sum.Instances, sum.Annotations,
		sum.RadarFrames, sum.SkippedFirstFrames, sum.TruncatedScenes, sum.Payloads,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO scene_stats (
			run_id, log_name, team, scene, input_frames, samples, annotations,
			occluded, instances, radar_frames, skipped_first, truncated, max_gap, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range sum.SceneStats {
		var maxGap int64
		if len(st.Gaps) > 0 {
			maxGap = slices.Max(st.Gaps)
		}
		if _, err := stmt.Exec(
			id, st.Log, st.Team, st.Scene, st.InputFrames, st.Samples, st.Annotations,
			st.Occluded, st.Instances, st.RadarFrames, st.SkippedFirst, st.Truncated,
			maxGap, st.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("failed to insert scene stats for %s: %w", st.Scene, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, started_at, finished_at, status, error, version,
	annotations_dir, sensors_dir, output_dir, dataset_version, intensity_scale, dry_run,
	logs, scenes, frames, instances, annotations, radar_frames,
	skipped_first_frames, truncated_scenes, payloads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	err := s.Scan(&r.ID, &started, &finished, &r.Status, &r.Error, &r.Version,
		&r.AnnotationsDir, &r.SensorsDir, &r.OutputDir, &r.DatasetVersion, &r.IntensityScale, &r.DryRun,
		&r.Logs, &r.Scenes, &r.Frames, &r.Instances, &r.Annotations, &r.RadarFrames,
		&r.SkippedFirstFrames, &r.TruncatedScenes, &r.Payloads)
	if err != nil {
		return r, err
	}
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return r, fmt.Errorf("bad started_at %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return r, fmt.Errorf("bad finished_at %q: %w", finished.String, err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRun returns one run.
func (c *Catalog) GetRun(id string) (Run, error) {
	r, err := scanRun(c.db.QueryRow(`SELECT `+runColumns+` FROM conversion_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (c *Catalog) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.Query(`SELECT `+runColumns+` FROM conversion_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SceneStats returns the stored scene rows of a run ordered by log, team
// and scene.
func (c *Catalog) SceneStats(runID string) ([]SceneRow, error) {
	rows, err := c.db.Query(`
		SELECT log_name, team, scene, input_frames, samples, annotations, occluded,
			instances, radar_frames, skipped_first, truncated, max_gap, duration_ms
		FROM scene_stats WHERE run_id = ?
		ORDER BY log_name, team, scene`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SceneRow{}
	for rows.Next() {
		var s SceneRow
		if err := rows.Scan(&s.Log, &s.Team, &s.Scene, &s.InputFrames, &s.Samples, &s.Annotations,
			&s.Occluded, &s.Instances, &s.RadarFrames, &s.SkippedFirst, &s.Truncated,
			&s.MaxGap, &s.DurationMs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
