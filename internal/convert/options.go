// Package convert builds the nuScenes entity graph from per-frame
// annotations and schedules the point-cloud re-encoding for every sample.
package convert

import (
	"errors"

	"github.com/banshee-data/nusconv/internal/config"
	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/nuscenes"
	"github.com/banshee-data/nusconv/internal/pointcloud"
	"github.com/banshee-data/nusconv/internal/temporal"
	"github.com/banshee-data/nusconv/internal/timeutil"
	"github.com/banshee-data/nusconv/internal/token"
)

// ErrMissingLidar is returned when a frame's LiDAR file is absent and
// truncation is disabled.
var ErrMissingLidar = errors.New("lidar point cloud not found")

// ErrPayloadCollision is returned when two scenes map a capture to the same
// payload path. Payload names carry only channel, team and timestamp.
var ErrPayloadCollision = errors.New("payload path claimed by another scene")

// Options controls a conversion.
type Options struct {
	SensorsDir             string
	IntensityScale         config.IntensityScale
	FirstFrameGapThreshold int64
	TruncateOnMissingLidar bool
	RadarKeyFrames         bool
	Workers                int
	Location               string
	Static                 nuscenes.Static

	// DryRun builds the tables without loading or writing any payload.
	DryRun bool
}

// OptionsFromConfig maps a loaded configuration onto Options.
func OptionsFromConfig(cfg *config.ConvertConfig) Options {
	return Options{
		SensorsDir:             cfg.GetSensorsDir(),
		IntensityScale:         cfg.GetIntensityScale(),
		FirstFrameGapThreshold: cfg.GetFirstFrameGapThreshold(),
		TruncateOnMissingLidar: cfg.GetTruncateOnMissingLidar(),
		RadarKeyFrames:         cfg.GetRadarKeyFrames(),
		Workers:                cfg.GetEncodeWorkers(),
		Location:               cfg.GetLocation(),
		Static: nuscenes.Static{
			CategoryName:        cfg.GetCategoryName(),
			CategoryDescription: cfg.GetCategoryDescription(),
		},
	}
}

// PayloadSink receives re-encoded point clouds. rel is relative to the
// dataset root, e.g. "samples/LIDAR_TOP/LIDAR_TOP_team_123.pcd.bin".
// Implementations must be safe for concurrent use.
type PayloadSink interface {
	WritePayload(rel string, data []byte) error
}

// Deps are the collaborators of a Builder. Zero fields get defaults in
// NewBuilder, except Sink which is required unless DryRun is set.
type Deps struct {
	FS       fsutil.FileSystem
	Loader   pointcloud.Loader
	Radar    *temporal.Cache
	Sink     PayloadSink
	Registry *token.Registry
	Progress *monitoring.Progress
	Clock    timeutil.Clock
}
