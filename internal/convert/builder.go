package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/nusconv/internal/annotation"
	"github.com/banshee-data/nusconv/internal/config"
	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/nuscenes"
	"github.com/banshee-data/nusconv/internal/pointcloud"
	"github.com/banshee-data/nusconv/internal/temporal"
	"github.com/banshee-data/nusconv/internal/timeutil"
	"github.com/banshee-data/nusconv/internal/token"
)

// Builder converts detections into a nuScenes table set. A Builder is
// single use: call Convert once.
type Builder struct {
	opts Options

	fs       fsutil.FileSystem
	loader   pointcloud.Loader
	radar    *temporal.Cache
	sink     PayloadSink
	reg      *token.Registry
	progress *monitoring.Progress
	clock    timeutil.Clock

	tables  *nuscenes.Tables
	summary *Summary
	used    bool

	// payloads maps every claimed payload path to the scene that owns it.
	payloads map[string]temporal.Scope
}

// NewBuilder returns a Builder. Missing Deps fields are filled with the
// filesystem-backed defaults rooted at opts.SensorsDir.
func NewBuilder(opts Options, deps Deps) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.FirstFrameGapThreshold <= 0 {
		opts.FirstFrameGapThreshold = 200000000
	}
	if opts.IntensityScale == "" {
		opts.IntensityScale = config.IntensityUnit
	}

	b := &Builder{
		opts:     opts,
		fs:       deps.FS,
		loader:   deps.Loader,
		radar:    deps.Radar,
		sink:     deps.Sink,
		reg:      deps.Registry,
		progress: deps.Progress,
		clock:    deps.Clock,
	}
	if b.fs == nil {
		b.fs = fsutil.OSFileSystem{}
	}
	if b.loader == nil {
		b.loader = pointcloud.NewPCDReader(b.fs)
	}
	if b.radar == nil {
		b.radar = temporal.NewCache(temporal.NewDirLister(b.fs, filepath.Join(opts.SensorsDir, "radar")))
	}
	if b.reg == nil {
		b.reg = token.NewRegistry()
	}
	if b.clock == nil {
		b.clock = timeutil.RealClock{}
	}
	return b
}

// LidarPath returns the raw LiDAR file for a frame.
func (b *Builder) LidarPath(log, team, scene string, ts int64) string {
	return filepath.Join(b.opts.SensorsDir, "lidar", log, team, scene, fmt.Sprintf("%d.pcd", ts))
}

// Convert walks det in session, team, scene and timestamp order and
// returns the validated tables with a run summary. Payload encoding for
// each scene finishes before the next scene starts.
func (b *Builder) Convert(ctx context.Context, det annotation.Detections) (*nuscenes.Tables, *Summary, error) {
	if b.used {
		return nil, nil, fmt.Errorf("builder already used")
	}
	b.used = true
	if b.sink == nil && !b.opts.DryRun {
		return nil, nil, fmt.Errorf("no payload sink configured")
	}

	b.tables = nuscenes.NewTables(b.reg, b.opts.Static)
	b.summary = &Summary{}
	b.payloads = make(map[string]temporal.Scope)

	for _, session := range annotation.SortedKeys(det) {
		b.progress.Log(session)
		teams := det[session]
		for _, team := range annotation.SortedKeys(teams) {
			if err := b.convertTeam(ctx, session, team, teams[team]); err != nil {
				return nil, nil, err
			}
		}
	}

	b.tables.LinkMapToLogs()
	if err := b.tables.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate tables: %w", err)
	}
	return b.tables, b.summary, nil
}

func (b *Builder) convertTeam(ctx context.Context, session, team string, scenes annotation.Scenes) error {
	b.progress.Team(team, len(scenes))

	logRow := nuscenes.Log{
		Token:        b.reg.New(),
		Logfile:      "",
		Vehicle:      team,
		DateCaptured: session,
		Location:     b.opts.Location,
	}
	b.tables.Log = append(b.tables.Log, logRow)
	b.summary.Logs++

	names := annotation.SortedKeys(scenes)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := b.clock.Now()

		sb := newSceneBuilder(b, logRow, name)
		stats, err := sb.run(ctx, scenes[name])
		if err != nil {
			return fmt.Errorf("%s/%s/%s: %w", session, team, name, err)
		}
		stats.Duration = b.clock.Since(start)
		b.summary.add(stats)
		b.progress.Scene(i+1, len(names), name, stats.Samples, stats.Duration)
	}
	return nil
}
