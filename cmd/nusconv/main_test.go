package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nusconv/internal/catalog"
	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/nuscenes"
	"github.com/banshee-data/nusconv/internal/pointcloud"
	"github.com/banshee-data/nusconv/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

const sceneJSON = `{
  "items": [
    {"id": "1000_000000000", "annotations": [
      {"id": 4, "type": "cuboid_3d", "position": [1, 2, 0], "scale": [5, 2, 1], "rotation": [0, 0, 0.5], "attributes": {"occluded": false}}
    ]},
    {"id": "1000_100000000", "annotations": [
      {"id": 4, "type": "cuboid_3d", "position": [2, 2, 0], "scale": [5, 2, 1], "rotation": [0, 0, 0.5], "attributes": {"occluded": false}}
    ]}
  ]
}`

func seedInputs(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ann/s1/tum/scene_1.json", []byte(sceneJSON), 0644))

	cloud := pointcloud.NewCloud(2)
	cloud.Positions = append(cloud.Positions, [3]float32{1, 2, 3}, [3]float32{4, 5, 6})
	cloud.Fields["intensity"] = []float64{0.5, 1}
	for _, ts := range []string{"1000000000000", "1000100000000"} {
		path := filepath.Join("/sensors/lidar/s1/tum/scene_1", ts+".pcd")
		require.NoError(t, mfs.WriteFile(path, pointcloud.EncodePCD(cloud, false), 0644))
	}
	return mfs
}

func TestRun_EndToEnd(t *testing.T) {
	mfs := seedInputs(t)
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-annotations", "/ann",
		"-sensors", "/sensors",
		"-output", "/out",
		"-workers", "2",
		"-catalog", dbPath,
		"-report", "/reports",
	}, &out, mfs)
	require.NoError(t, err)

	data, err := mfs.ReadFile("/out/v1.0-mini/sample.json")
	require.NoError(t, err)
	var samples []nuscenes.Sample
	require.NoError(t, json.Unmarshal(data, &samples))
	assert.Len(t, samples, 2)

	assert.True(t, mfs.Exists("/out/samples/LIDAR_TOP/LIDAR_TOP_tum_1000000000000.pcd.bin"))
	assert.Contains(t, out.String(), "Tracks")

	cat, err := catalog.Open(dbPath, timeutil.RealClock{})
	require.NoError(t, err)
	defer cat.Close()
	runs, err := cat.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, catalog.StatusSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].Frames)

	assert.True(t, mfs.Exists(filepath.Join("/reports", runs[0].ID+".html")))
	assert.True(t, mfs.Exists(filepath.Join("/reports", runs[0].ID+"_gaps.png")))
}

func TestRun_DryRun(t *testing.T) {
	mfs := seedInputs(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-annotations", "/ann", "-sensors", "/sensors", "-dry-run"}, &out, mfs)
	require.NoError(t, err)

	assert.False(t, mfs.Exists("/out"))
	assert.Contains(t, out.String(), "Frames")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing annotations", []string{"-output", "/out"}},
		{"missing output", []string{"-annotations", "/ann"}},
		{"bad scale", []string{"-annotations", "/ann", "-output", "/out", "-intensity-scale", "percent"}},
		{"unknown flag", []string{"-nope"}},
		{"bad config", []string{"-config", "/nonexistent/cfg.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, seedInputs(t))
			assert.Error(t, err)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out, fsutil.NewMemoryFileSystem()))
	assert.Contains(t, out.String(), "nusconv ")
}

func TestParseFlags_Defaults(t *testing.T) {
	f, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, -1, f.workers)
	assert.False(t, f.dryRun)
	assert.Empty(t, f.catalog)
}
