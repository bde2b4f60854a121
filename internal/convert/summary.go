package convert

import (
	"time"

	"github.com/banshee-data/nusconv/internal/monitoring"
)

// SceneStats describes one processed scene.
type SceneStats struct {
	Log   string
	Team  string
	Scene string

	InputFrames  int
	Samples      int
	Annotations  int
	Occluded     int
	Instances    int
	RadarFrames  int
	SkippedFirst bool
	Truncated    bool

	// Gaps are the timestamp deltas between consecutive emitted samples.
	Gaps     []int64
	Duration time.Duration
}

// Emitted reports whether the scene produced any rows.
func (s SceneStats) Emitted() bool { return s.Samples > 0 }

// Summary aggregates a conversion run.
type Summary struct {
	Logs               int
	Scenes             int
	Frames             int
	Instances          int
	Annotations        int
	RadarFrames        int
	SkippedFirstFrames int
	TruncatedScenes    int
	EmptyScenes        int
	OccludedDropped    int
	RejectedFrameKeys  int
	Payloads           int

	SceneStats []SceneStats
}

func (s *Summary) add(st SceneStats) {
	s.SceneStats = append(s.SceneStats, st)
	if st.SkippedFirst {
		s.SkippedFirstFrames++
	}
	if st.Truncated {
		s.TruncatedScenes++
	}
	s.OccludedDropped += st.Occluded
	if !st.Emitted() {
		s.EmptyScenes++
		return
	}
	s.Scenes++
	s.Frames += st.Samples
	s.Annotations += st.Annotations
	s.Instances += st.Instances
	s.RadarFrames += st.RadarFrames
}

// Lines renders the closing summary block.
func (s *Summary) Lines() []monitoring.SummaryLine {
	return []monitoring.SummaryLine{
		{Label: "Logs", Value: s.Logs},
		{Label: "Scenes", Value: s.Scenes},
		{Label: "Frames", Value: s.Frames},
		{Label: "Tracks", Value: s.Instances},
		{Label: "Annotations", Value: s.Annotations},
		{Label: "Radar frames", Value: s.RadarFrames},
		{Label: "Skipped first frames", Value: s.SkippedFirstFrames},
		{Label: "Truncated scenes", Value: s.TruncatedScenes},
	}
}
