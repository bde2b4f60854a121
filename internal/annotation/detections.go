// Package annotation holds per-frame 3D box annotations keyed by session,
// team, scene and frame, and loads them from Datumaro exports.
package annotation

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Annotation is one labelled box in one frame.
type Annotation struct {
	ID       int64
	Position [3]float64
	// Size is (length, width, height).
	Size    [3]float64
	Yaw     float64
	Visible bool
}

// Frames maps a frame key to the frame's annotations.
type Frames map[string][]Annotation

// Scenes maps a scene name to its frames.
type Scenes map[string]Frames

// Teams maps a team id to its scenes.
type Teams map[string]Scenes

// Detections maps a session (log) name to its teams.
type Detections map[string]Teams

// Add stores the annotations of one frame, creating intermediate maps.
func (d Detections) Add(session, team, scene, frame string, anns []Annotation) {
	teams, ok := d[session]
	if !ok {
		teams = make(Teams)
		d[session] = teams
	}
	scenes, ok := teams[team]
	if !ok {
		scenes = make(Scenes)
		teams[team] = scenes
	}
	frames, ok := scenes[scene]
	if !ok {
		frames = make(Frames)
		scenes[scene] = frames
	}
	frames[frame] = anns
}

// Counts returns the number of scenes, frames and annotations.
func (d Detections) Counts() (scenes, frames, annotations int) {
	for _, teams := range d {
		for _, sc := range teams {
			scenes += len(sc)
			for _, fr := range sc {
				frames += len(fr)
				for _, anns := range fr {
					annotations += len(anns)
				}
			}
		}
	}
	return scenes, frames, annotations
}

// SortedKeys returns the keys of m in lexicographic order.
func SortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// ParseFrameKey converts a frame key such as "1700000000_123456789" to its
// integer timestamp. Underscores are removed before parsing.
func ParseFrameKey(key string) (int64, error) {
	ts, err := strconv.ParseInt(strings.ReplaceAll(key, "_", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("frame key %q: %w", key, err)
	}
	return ts, nil
}

// Frame is a frame with its parsed timestamp.
type Frame struct {
	Key         string
	Timestamp   int64
	Annotations []Annotation
}

// Ordered returns the frames sorted by timestamp. Keys that do not parse
// are returned separately, sorted.
func (f Frames) Ordered() (frames []Frame, rejected []string) {
	for key, anns := range f {
		ts, err := ParseFrameKey(key)
		if err != nil {
			rejected = append(rejected, key)
			continue
		}
		frames = append(frames, Frame{Key: key, Timestamp: ts, Annotations: anns})
	}
	slices.SortFunc(frames, func(a, b Frame) int {
		if a.Timestamp != b.Timestamp {
			if a.Timestamp < b.Timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Key, b.Key)
	})
	slices.Sort(rejected)
	return frames, rejected
}
