package convert

import (
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/nusconv/internal/annotation"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/nuscenes"
	"github.com/banshee-data/nusconv/internal/temporal"
)

// sceneBuilder accumulates the rows of one scene. Rows reach the global
// tables only once the scene is complete.
type sceneBuilder struct {
	b     *Builder
	log   nuscenes.Log
	scope temporal.Scope
	scene nuscenes.Scene

	samples     []nuscenes.Sample
	annotations []nuscenes.SampleAnnotation
	lidar       []nuscenes.SampleData
	radar       []nuscenes.SampleData
	poses       []nuscenes.EgoPose
	calibrated  []nuscenes.CalibratedSensor

	// lastAnnotation maps an instance token to the index of its most
	// recent annotation in annotations.
	lastAnnotation map[string]int

	encoder *encoder
	stats   SceneStats
}

func newSceneBuilder(b *Builder, log nuscenes.Log, name string) *sceneBuilder {
	return &sceneBuilder{
		b:              b,
		log:            log,
		scope:          temporal.Scope{Log: log.DateCaptured, Team: log.Vehicle, Scene: name},
		lastAnnotation: make(map[string]int),
		stats: SceneStats{
			Log:   log.DateCaptured,
			Team:  log.Vehicle,
			Scene: name,
		},
	}
}

func (s *sceneBuilder) run(ctx context.Context, frames annotation.Frames) (SceneStats, error) {
	b := s.b
	b.reg.BeginScene()

	ordered, rejected := frames.Ordered()
	for _, key := range rejected {
		monitoring.Logf("[convert] %s: skipping frame with unparseable key %q", s.scope.Scene, key)
	}
	b.summary.RejectedFrameKeys += len(rejected)
	s.stats.InputFrames = len(ordered)

	if len(ordered) >= 2 && ordered[1].Timestamp-ordered[0].Timestamp >= b.opts.FirstFrameGapThreshold {
		monitoring.Logf("[convert] %s: initial gap of %d detected, dropping first frame", s.scope.Scene, ordered[1].Timestamp-ordered[0].Timestamp)
		ordered = ordered[1:]
		s.stats.SkippedFirst = true
	}

	s.scene = nuscenes.Scene{
		Token:       b.reg.New(),
		LogToken:    s.log.Token,
		Name:        s.scope.Scene,
		Description: fmt.Sprintf("%s of %s for team %s", s.scope.Scene, s.log.DateCaptured, s.log.Vehicle),
	}

	s.encoder = newEncoder(ctx, b, s.scope)

	for i, frame := range ordered {
		src := b.LidarPath(s.log.DateCaptured, s.log.Vehicle, s.scope.Scene, frame.Timestamp)
		if !b.fs.Exists(src) {
			if !b.opts.TruncateOnMissingLidar {
				_ = s.encoder.wait()
				return s.stats, fmt.Errorf("%w: %s", ErrMissingLidar, src)
			}
			monitoring.Logf("[convert] %s: after sample idx %d point cloud %s not found, ending scene", s.scope.Scene, i, src)
			s.stats.Truncated = true
			break
		}
		if err := s.addFrame(frame, src); err != nil {
			_ = s.encoder.wait()
			return s.stats, err
		}
	}

	if len(s.samples) == 0 {
		if err := s.encoder.wait(); err != nil {
			return s.stats, err
		}
		monitoring.Logf("[convert] %s: no samples emitted, scene dropped", s.scope.Scene)
		return s.stats, nil
	}

	if err := s.addRadar(ctx); err != nil {
		_ = s.encoder.wait()
		return s.stats, err
	}
	instances := s.instances()

	s.scene.LastSampleToken = s.samples[len(s.samples)-1].Token
	s.scene.NbrSamples = len(s.samples)

	if err := s.encoder.wait(); err != nil {
		return s.stats, err
	}

	t := b.tables
	t.Scene = append(t.Scene, s.scene)
	t.Sample = append(t.Sample, s.samples...)
	t.SampleAnnotation = append(t.SampleAnnotation, s.annotations...)
	t.Instance = append(t.Instance, instances...)
	t.EgoPose = append(t.EgoPose, s.poses...)
	t.CalibratedSensor = append(t.CalibratedSensor, s.calibrated...)
	t.SampleData = append(t.SampleData, s.lidar...)
	t.SampleData = append(t.SampleData, s.radar...)
	b.summary.Payloads += s.encoder.scheduled

	s.stats.Samples = len(s.samples)
	s.stats.Annotations = len(s.annotations)
	s.stats.Instances = len(instances)
	s.stats.RadarFrames = len(s.radar)
	for i := 1; i < len(s.samples); i++ {
		s.stats.Gaps = append(s.stats.Gaps, s.samples[i].Timestamp-s.samples[i-1].Timestamp)
	}
	return s.stats, nil
}

func (s *sceneBuilder) addFrame(frame annotation.Frame, src string) error {
	b := s.b

	sample := nuscenes.Sample{
		Token:      b.reg.New(),
		SceneToken: s.scene.Token,
		Timestamp:  frame.Timestamp,
	}
	if n := len(s.samples); n > 0 {
		sample.Prev = s.samples[n-1].Token
		s.samples[n-1].Next = sample.Token
	} else {
		s.scene.FirstSampleToken = sample.Token
	}
	s.samples = append(s.samples, sample)

	for _, ann := range frame.Annotations {
		if !ann.Visible {
			s.stats.Occluded++
			continue
		}
		s.addAnnotation(sample.Token, ann)
	}

	pose := nuscenes.EgoPose{
		Token:       b.reg.New(),
		Timestamp:   frame.Timestamp,
		Rotation:    nuscenes.IdentityRotation,
		Translation: nuscenes.Vec3{},
	}
	s.poses = append(s.poses, pose)

	cs := s.newCalibratedSensor(b.tables.LidarSensorToken())

	rel := payloadName(nuscenes.ChannelLidar, s.log.Vehicle, frame.Timestamp, ".pcd.bin")
	sd := nuscenes.SampleData{
		Token:                 b.reg.New(),
		SampleToken:           sample.Token,
		EgoPoseToken:          pose.Token,
		CalibratedSensorToken: cs.Token,
		Timestamp:             frame.Timestamp,
		FileFormat:            nuscenes.FileFormatPCD,
		IsKeyFrame:            true,
		Filename:              rel,
	}
	if n := len(s.lidar); n > 0 {
		sd.Prev = s.lidar[n-1].Token
		s.lidar[n-1].Next = sd.Token
	}
	s.lidar = append(s.lidar, sd)

	return s.encoder.lidar(src, rel)
}

func (s *sceneBuilder) addAnnotation(sampleToken string, ann annotation.Annotation) {
	b := s.b
	sa := nuscenes.SampleAnnotation{
		Token:           b.reg.New(),
		SampleToken:     sampleToken,
		InstanceToken:   b.reg.Instance(ann.ID),
		AnnotationID:    ann.ID,
		AttributeTokens: []string{},
		VisibilityToken: nuscenes.VisibilityToken,
		Translation:     nuscenes.Vec3(ann.Position),
		Size:            nuscenes.SwapLengthWidth(ann.Size),
		Rotation:        nuscenes.YawRotation(ann.Yaw),
		NumLidarPts:     1,
		NumRadarPts:     1,
	}
	if last, ok := s.lastAnnotation[sa.InstanceToken]; ok {
		sa.Prev = s.annotations[last].Token
		s.annotations[last].Next = sa.Token
	}
	s.lastAnnotation[sa.InstanceToken] = len(s.annotations)
	s.annotations = append(s.annotations, sa)
}

func (s *sceneBuilder) newCalibratedSensor(sensorToken string) nuscenes.CalibratedSensor {
	cs := nuscenes.CalibratedSensor{
		Token:           s.b.reg.New(),
		SensorToken:     sensorToken,
		Translation:     nuscenes.Vec3{},
		Rotation:        nuscenes.IdentityRotation,
		CameraIntrinsic: [][]float64{},
	}
	s.calibrated = append(s.calibrated, cs)
	return cs
}

// addRadar attaches the nearest radar capture to every LiDAR keyframe.
func (s *sceneBuilder) addRadar(ctx context.Context) error {
	b := s.b
	for _, lidar := range s.lidar {
		if err := ctx.Err(); err != nil {
			return err
		}
		capture, ok, err := b.radar.Nearest(s.scope, lidar.Timestamp)
		if err != nil {
			return fmt.Errorf("radar index: %w", err)
		}
		if !ok {
			continue
		}

		cs := s.newCalibratedSensor(b.tables.RadarSensorToken())
		rel := payloadName(nuscenes.ChannelRadar, s.log.Vehicle, capture.Timestamp, ".pcd")
		s.radar = append(s.radar, nuscenes.SampleData{
			Token:                 b.reg.New(),
			SampleToken:           lidar.SampleToken,
			EgoPoseToken:          lidar.EgoPoseToken,
			CalibratedSensorToken: cs.Token,
			Timestamp:             capture.Timestamp,
			FileFormat:            nuscenes.FileFormatPCD,
			IsKeyFrame:            b.opts.RadarKeyFrames,
			Filename:              rel,
		})
		if err := s.encoder.radar(capture.Path, rel); err != nil {
			return err
		}
	}
	return nil
}

// instances derives one instance per distinct instance token, ordered by
// token, with annotations in emission order.
func (s *sceneBuilder) instances() []nuscenes.Instance {
	groups := make(map[string]*nuscenes.Instance)
	for _, a := range s.annotations {
		inst, ok := groups[a.InstanceToken]
		if !ok {
			inst = &nuscenes.Instance{
				Token:                a.InstanceToken,
				CategoryToken:        s.b.tables.CategoryToken(),
				FirstAnnotationToken: a.Token,
			}
			groups[a.InstanceToken] = inst
		}
		inst.NbrAnnotations++
		inst.LastAnnotationToken = a.Token
	}

	out := make([]nuscenes.Instance, 0, len(groups))
	for _, inst := range groups {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func payloadName(channel, team string, ts int64, ext string) string {
	return fmt.Sprintf("samples/%s/%s_%s_%d%s", channel, channel, team, ts, ext)
}
