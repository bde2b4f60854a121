package dataset

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/nuscenes"
)

type minter struct{ n int }

func (m *minter) New() string {
	m.n++
	return fmt.Sprintf("t%d", m.n)
}

func (m *minter) Reserve(string) {}

func TestWriter_Prepare(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	w := NewWriter(mfs, "/out", "v1.0-mini")

	require.NoError(t, w.Prepare())
	for _, d := range []string{"/out/v1.0-mini", "/out/maps", "/out/samples/LIDAR_TOP", "/out/samples/RADAR_TOP", "/out/sweeps"} {
		assert.True(t, mfs.Exists(d), d)
	}
}

func TestWriter_WriteTables(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	w := NewWriter(mfs, "/out", "v1.0-mini")

	tb := nuscenes.NewTables(&minter{}, nuscenes.Static{CategoryName: "vehicle.car", CategoryDescription: "car"})
	tb.Log = append(tb.Log, nuscenes.Log{Token: "l1", Vehicle: "team", DateCaptured: "s1", Location: "track"})
	tb.LinkMapToLogs()
	require.NoError(t, w.WriteTables(tb))

	for _, name := range nuscenes.TableNames() {
		assert.True(t, mfs.Exists("/out/v1.0-mini/"+name+".json"), name)
	}

	raw, err := mfs.ReadFile("/out/v1.0-mini/attribute.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	raw, err = mfs.ReadFile("/out/v1.0-mini/visibility.json")
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"token\": \"0\",\n    \"description\": \"not implemented\",\n    \"level\": \"0\"\n  }\n]", string(raw))

	var maps []nuscenes.Map
	require.NoError(t, w.ReadTable("map", &maps))
	if diff := cmp.Diff(tb.Map, maps); diff != "" {
		t.Errorf("map table mismatch (-want +got):\n%s", diff)
	}

	var logs []nuscenes.Log
	require.NoError(t, w.ReadTable("log", &logs))
	assert.Equal(t, tb.Log, logs)
}

func TestWriter_WritePayload(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	w := NewWriter(mfs, "/out", "v1.0-mini")

	require.NoError(t, w.WritePayload("samples/LIDAR_TOP/LIDAR_TOP_team_1.pcd.bin", []byte{1, 2}))
	data, err := mfs.ReadFile("/out/samples/LIDAR_TOP/LIDAR_TOP_team_1.pcd.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	assert.Error(t, w.WritePayload("../escape.bin", nil))
	assert.Error(t, w.WritePayload("/abs/escape.bin", nil))
	assert.Equal(t, []string{"/out/samples/LIDAR_TOP/LIDAR_TOP_team_1.pcd.bin"}, mfs.Files())
}

func TestWriter_OSFileSystem(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(fsutil.OSFileSystem{}, root, "v1.0-mini")

	require.NoError(t, w.Prepare())
	require.NoError(t, w.WritePayload("samples/RADAR_TOP/RADAR_TOP_t_5.pcd", []byte("pcd")))
	require.NoError(t, w.WriteTables(nuscenes.NewTables(&minter{}, nuscenes.Static{})))

	var sensors []nuscenes.Sensor
	require.NoError(t, w.ReadTable("sensor", &sensors))
	assert.Len(t, sensors, 2)
}
