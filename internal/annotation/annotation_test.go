package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

const sceneExport = `{
  "info": {},
  "categories": {"label": {"labels": [{"name": "car"}]}},
  "items": [
    {
      "id": "1000_000000000",
      "annotations": [
        {"id": 4, "type": "cuboid_3d", "position": [1, 2, 3], "scale": [5, 2, 1.5], "rotation": [0, 0, 0.5], "attributes": {"occluded": false, "track_id": 4}},
        {"id": 9, "type": "cuboid_3d", "position": [7, 8, 9], "scale": [4, 1.8, 1.2], "rotation": [0, 0, -1], "attributes": {"occluded": true}}
      ]
    },
    {"id": "1000_100000000", "annotations": []}
  ]
}`

func TestDatumaroLoader_Load(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ann/session_1/unimore/scene_2.json", []byte(sceneExport), 0644))
	require.NoError(t, mfs.WriteFile("/ann/session_1/unimore/README.md", []byte("ignored"), 0644))
	require.NoError(t, mfs.WriteFile("/ann/notes.txt", []byte("ignored"), 0644))

	det, err := NewDatumaroLoader(mfs, "/ann").Load()
	require.NoError(t, err)

	frames := det["session_1"]["unimore"]["scene_2"]
	require.Len(t, frames, 2)
	assert.Empty(t, frames["1000_100000000"])

	anns := frames["1000_000000000"]
	require.Len(t, anns, 2)
	assert.Equal(t, Annotation{
		ID:       4,
		Position: [3]float64{1, 2, 3},
		Size:     [3]float64{5, 2, 1.5},
		Yaw:      0.5,
		Visible:  true,
	}, anns[0])
	assert.False(t, anns[1].Visible)
	assert.Equal(t, -1.0, anns[1].Yaw)

	scenes, nFrames, nAnns := det.Counts()
	assert.Equal(t, 1, scenes)
	assert.Equal(t, 2, nFrames)
	assert.Equal(t, 2, nAnns)
}

func TestDatumaroLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"items": [`},
		{"short position", `{"items": [{"id": "1", "annotations": [{"id": 1, "position": [1], "scale": [1,1,1], "rotation": [0,0,0]}]}]}`},
		{"short rotation", `{"items": [{"id": "1", "annotations": [{"id": 1, "position": [1,1,1], "scale": [1,1,1], "rotation": [0]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			require.NoError(t, mfs.WriteFile("/ann/s/t/x.json", []byte(tt.body), 0644))
			_, err := NewDatumaroLoader(mfs, "/ann").Load()
			assert.Error(t, err)
		})
	}

	_, err := NewDatumaroLoader(fsutil.NewMemoryFileSystem(), "/missing").Load()
	assert.Error(t, err)
}

func TestDatumaroLoader_LoadFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ann/s1/tum/scene_7.json", []byte(sceneExport), 0644))

	det := make(Detections)
	require.NoError(t, NewDatumaroLoader(mfs, "/ann").LoadFile(det, "/ann/s1/tum/scene_7.json"))
	assert.Len(t, det["s1"]["tum"]["scene_7"], 2)
}

func TestFrames_Ordered(t *testing.T) {
	frames := Frames{
		"1000_300000000": nil,
		"1000_000000000": {{ID: 1}},
		"bogus":          nil,
		"1000_100000000": nil,
	}

	ordered, rejected := frames.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, int64(1000000000000), ordered[0].Timestamp)
	assert.Equal(t, "1000_000000000", ordered[0].Key)
	assert.Equal(t, int64(1000100000000), ordered[1].Timestamp)
	assert.Equal(t, int64(1000300000000), ordered[2].Timestamp)
	assert.Equal(t, []string{"bogus"}, rejected)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestParseFrameKey(t *testing.T) {
	ts, err := ParseFrameKey("1_500")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), ts)

	_, err = ParseFrameKey("x")
	assert.Error(t, err)
}
